package ir

import (
	"strings"
	"testing"
)

const counterJSON = `{
  "entrypoint": "main",
  "components": [
    {
      "name": "sub",
      "signature": [
        {"name": "clk", "width": 1, "direction": "input", "attributes": {"clk": 1}},
        {"name": "x", "width": 8, "direction": "output"}
      ],
      "cells": [],
      "wires": []
    },
    {
      "name": "main",
      "signature": [
        {"name": "in", "width": 8, "direction": "input"},
        {"name": "out", "width": 8, "direction": "output"},
        {"name": "clk", "width": 1, "direction": "input", "attributes": {"clk": 1}}
      ],
      "cells": [
        {"name": "r", "prototype": "std_reg", "params": [8]},
        {"name": "lt", "prototype": "std_lt", "params": [8]},
        {"name": "s", "prototype": "sub", "is_component": true}
      ],
      "groups": [{"name": "incr"}, {"name": "cmp"}],
      "wires": [{"dst": "out", "src": "r.out"}],
      "control": {
        "kind": "seq",
        "stmts": [
          {"kind": "enable", "group": "incr"},
          {"kind": "while", "port": "lt.out", "cond": "cmp", "body": {"kind": "enable", "group": "incr"}},
          {"kind": "if", "port": "lt.out", "cond": "cmp", "true": {"kind": "print", "var": "r"}}
        ]
      }
    }
  ]
}`

func TestDecodeProgram(t *testing.T) {
	prog, err := DecodeProgram([]byte(counterJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(prog.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(prog.Components))
	}
	main, ok := prog.Component("main")
	if !ok {
		t.Fatalf("missing main")
	}
	sub, _ := main.FindCell("s")
	if _, ok := main.FindWithAttr(sub.ID, AttrClk); !ok {
		t.Fatalf("component instance should inherit the @clk signature port")
	}
	if len(main.Continuous) != 1 || main.PortName(main.Continuous[0].Src) != "r.out" {
		t.Fatalf("unexpected wires %v", main.Continuous)
	}
	seq, ok := main.Control.(*Seq)
	if !ok || len(seq.Stmts) != 3 {
		t.Fatalf("unexpected control %#v", main.Control)
	}
	iff := seq.Stmts[2].(*If)
	if _, ok := iff.False.(*Empty); !ok {
		t.Fatalf("missing branch should decode as empty, got %T", iff.False)
	}
}

func TestDecodeProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad_json", `{`, "parsing program"},
		{"unknown_primitive", `{"components":[{"name":"m","signature":[],"cells":[{"name":"x","prototype":"nope"}],"wires":[]}]}`, "unknown primitive"},
		{"forward_component", `{"components":[{"name":"m","signature":[],"cells":[{"name":"x","prototype":"later","is_component":true}],"wires":[]}]}`, "not defined before use"},
		{"bad_direction", `{"components":[{"name":"m","signature":[{"name":"p","width":1,"direction":"up"}],"cells":[],"wires":[]}]}`, "unknown port direction"},
		{"bad_guard", `{"components":[{"name":"m","signature":[{"name":"a","width":1,"direction":"in"},{"name":"b","width":1,"direction":"out"}],"cells":[],"wires":[{"dst":"b","src":"a","guard":"a"}]}]}`, "unsupported guard"},
		{"bad_kind", `{"components":[{"name":"m","signature":[],"cells":[],"wires":[],"control":{"kind":"loop"}}]}`, "unknown control kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProgram([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeProgramRoundTrip(t *testing.T) {
	prog, err := DecodeProgram([]byte(counterJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, err := EncodeProgram(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("decode encoded: %v", err)
	}

	var first, second strings.Builder
	if err := Fprint(&first, prog); err != nil {
		t.Fatalf("print: %v", err)
	}
	if err := Fprint(&second, again); err != nil {
		t.Fatalf("print: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("round trip changed the program\nfirst:\n%s\nsecond:\n%s", first.String(), second.String())
	}
}

func TestEncodeProgramKeepsEmptyAttributes(t *testing.T) {
	prog, err := DecodeProgram([]byte(counterJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	comp, _ := prog.Component("main")
	comp.Control = NewSeq(&Empty{Attributes: Attributes{"static": 2}}, NewEnable("incr"))

	data, err := EncodeProgram(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("decode encoded: %v", err)
	}
	decoded, _ := again.Component("main")
	seq, ok := decoded.Control.(*Seq)
	if !ok || len(seq.Stmts) != 2 {
		t.Fatalf("control = %#v, want a two-statement seq", decoded.Control)
	}
	empty, ok := seq.Stmts[0].(*Empty)
	if !ok {
		t.Fatalf("first statement = %T, want *Empty", seq.Stmts[0])
	}
	if v, _ := empty.Attributes.Get("static"); v != 2 {
		t.Fatalf("empty attributes = %v, want static=2", empty.Attributes)
	}
}

func TestEncodeProgramRejectsMalformedControl(t *testing.T) {
	tests := []struct {
		name    string
		control Control
		wantErr string
	}{
		{"nil root", nil, "control root: missing node"},
		{"nil child", NewSeq(NewEnable("incr"), nil), "control root.1: missing node"},
		{"nil while body", &While{Cond: "cmp"}, "control root.body: missing node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := DecodeProgram([]byte(counterJSON))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			comp, _ := prog.Component("main")
			comp.Control = tt.control

			_, err = EncodeProgram(prog)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), "component main") || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want it to mention component main and %q", err, tt.wantErr)
			}
		})
	}
}
