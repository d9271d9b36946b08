package ir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a human-readable rendering of prog to w. The output is
// deterministic so that dumps taken between passes can be diffed.
func Fprint(w io.Writer, prog *Program) error {
	var b strings.Builder
	for i, comp := range prog.Components {
		if i > 0 {
			b.WriteString("\n")
		}
		writeComponent(&b, comp)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ComponentString renders a single component.
func ComponentString(comp *Component) string {
	var b strings.Builder
	writeComponent(&b, comp)
	return b.String()
}

// ControlString renders a control tree in the context of comp, which is
// used to name condition ports.
func ControlString(comp *Component, c Control) string {
	var b strings.Builder
	writeControl(&b, comp, c, 0)
	return b.String()
}

func writeComponent(b *strings.Builder, comp *Component) {
	var inputs, outputs []string
	for _, id := range comp.Signature {
		p := comp.Port(id)
		s := fmt.Sprintf("%s: %d", p.Name, p.Width)
		if attrs := p.Attributes.String(); attrs != "" {
			s = attrs + " " + s
		}
		if p.Direction == Output {
			outputs = append(outputs, s)
		} else {
			inputs = append(inputs, s)
		}
	}
	header := "component " + comp.Name
	if attrs := comp.Attributes.String(); attrs != "" {
		header = attrs + " " + header
	}
	fmt.Fprintf(b, "%s(%s) -> (%s) {\n", header, strings.Join(inputs, ", "), strings.Join(outputs, ", "))

	b.WriteString("  cells {\n")
	for _, cell := range comp.Cells() {
		prefix := ""
		if attrs := cell.Attributes.String(); attrs != "" {
			prefix = attrs + " "
		}
		fmt.Fprintf(b, "    %s%s = %s;\n", prefix, cell.Name, cell.Prototype)
	}
	b.WriteString("  }\n")

	b.WriteString("  wires {\n")
	for _, g := range comp.Groups {
		prefix := ""
		if attrs := g.Attributes.String(); attrs != "" {
			prefix = attrs + " "
		}
		fmt.Fprintf(b, "    %sgroup %s;\n", prefix, g.Name)
	}
	for _, a := range comp.Continuous {
		b.WriteString("    ")
		b.WriteString(AssignmentString(comp, a))
		b.WriteString("\n")
	}
	b.WriteString("  }\n")

	if _, empty := comp.Control.(*Empty); empty || comp.Control == nil {
		b.WriteString("  control {}\n")
	} else {
		b.WriteString("  control {\n")
		writeControl(b, comp, comp.Control, 2)
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
}

// AssignmentString renders "dst = guard ? src;" or "dst = src;" for true guards.
func AssignmentString(comp *Component, a Assignment) string {
	if IsTrue(a.Guard) {
		return fmt.Sprintf("%s = %s;", comp.PortName(a.Dst), comp.PortName(a.Src))
	}
	return fmt.Sprintf("%s = %s ? %s;", comp.PortName(a.Dst), a.Guard, comp.PortName(a.Src))
}

func writeControl(b *strings.Builder, comp *Component, c Control, depth int) {
	indent := strings.Repeat("  ", depth)
	attrs := ""
	line := func(format string, args ...any) {
		b.WriteString(indent)
		if attrs != "" {
			b.WriteString(attrs)
			b.WriteString(" ")
		}
		fmt.Fprintf(b, format, args...)
		b.WriteString("\n")
	}
	closeBlock := func() {
		b.WriteString(indent)
		b.WriteString("}\n")
	}

	switch n := c.(type) {
	case nil:
		b.WriteString(indent + "<nil>;\n")
	case *Seq:
		attrs = n.Attributes.String()
		line("seq {")
		for _, s := range n.Stmts {
			writeControl(b, comp, s, depth+1)
		}
		closeBlock()
	case *Par:
		attrs = n.Attributes.String()
		line("par {")
		for _, s := range n.Stmts {
			writeControl(b, comp, s, depth+1)
		}
		closeBlock()
	case *If:
		attrs = n.Attributes.String()
		line("if %s with %s {", comp.PortName(n.Port), n.Cond)
		writeControl(b, comp, n.True, depth+1)
		b.WriteString(indent + "} else {\n")
		writeControl(b, comp, n.False, depth+1)
		closeBlock()
	case *Ifen:
		attrs = n.Attributes.String()
		line("ifen %s with %s {", comp.PortName(n.Port), n.Cond)
		writeControl(b, comp, n.True, depth+1)
		b.WriteString(indent + "} else {\n")
		writeControl(b, comp, n.False, depth+1)
		closeBlock()
	case *While:
		attrs = n.Attributes.String()
		line("while %s with %s {", comp.PortName(n.Port), n.Cond)
		writeControl(b, comp, n.Body, depth+1)
		closeBlock()
	case *Print:
		attrs = n.Attributes.String()
		line("print(%s);", n.Var)
	case *Enable:
		attrs = n.Attributes.String()
		line("%s;", n.Group)
	case *Disable:
		attrs = n.Attributes.String()
		line("disable %s;", n.Group)
	case *Empty:
		attrs = n.Attributes.String()
		line("empty;")
	default:
		line("<unknown %T>;", c)
	}
}
