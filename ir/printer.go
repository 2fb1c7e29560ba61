// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// namer assigns printable names to the values of one function. Unnamed
// arguments, results and blocks get sequential numbers; clashing names get
// a numeric suffix.
type namer struct {
	prog   *Program
	names  map[Value]string
	blocks map[*Block]string
}

func newNamer(f *Function) namer {
	n := namer{
		prog:   f.prog,
		names:  make(map[Value]string),
		blocks: make(map[*Block]string),
	}
	used := make(map[string]bool)
	next := 0
	pick := func(name string) string {
		if name == "" {
			s := strconv.Itoa(next)
			next++
			return s
		}
		if !used[name] {
			used[name] = true
			return name
		}
		for i := 1; ; i++ {
			cand := name + strconv.Itoa(i)
			if !used[cand] {
				used[cand] = true
				return cand
			}
		}
	}
	for _, a := range f.args {
		n.names[a] = pick(f.prog.NameOf(a))
	}
	for _, b := range f.blocks {
		n.blocks[b] = pick(b.name)
		for _, inst := range b.insts {
			if inst.typ.IsVoid() {
				continue
			}
			n.names[inst.id] = pick(inst.Name())
		}
	}
	return n
}

func (n namer) value(v Value) string {
	p := n.prog
	switch p.Kind(v) {
	case ConstValue:
		return formatConst(p.TypeOf(v), p.slot(v).bits)
	case UndefValue:
		return "undef"
	case FuncValue:
		return "@" + p.NameOf(v)
	case ArgValue, InstValue:
		if name, ok := n.names[v]; ok {
			return "%" + name
		}
		if name := p.NameOf(v); name != "" {
			return "%" + name
		}
		return fmt.Sprintf("%%v%d", v)
	}
	return "<invalid>"
}

func (n namer) typed(v Value) string {
	return n.prog.TypeOf(v).String() + " " + n.value(v)
}

func (n namer) block(b *Block) string {
	if name, ok := n.blocks[b]; ok {
		return "%" + name
	}
	return "%" + b.name
}

func formatConst(t *Type, bits uint64) string {
	switch t.Kind {
	case VectorKind:
		return fmt.Sprintf("splat (%s %s)", t.Elem, formatConst(t.Elem, bits))
	case PointerKind:
		if bits == 0 {
			return "null"
		}
		return fmt.Sprintf("inttoptr (i64 %d to %s)", bits, t)
	case IntegerKind:
		if t.Bits == 1 {
			if bits != 0 {
				return "true"
			}
			return "false"
		}
		return strconv.FormatInt(SignExtend(bits, t.Bits), 10)
	}
	return strconv.FormatUint(bits, 10)
}

// SignExtend interprets the low bits of x as a two's complement integer.
func SignExtend(x uint64, bits int) int64 {
	if bits <= 0 || bits >= 64 {
		return int64(x)
	}
	shift := 64 - bits
	return int64(x<<shift) >> shift
}

func flagWords(inst *Instruction) string {
	var words []string
	if inst.HasFlag(FlagNUW) {
		words = append(words, "nuw")
	}
	if inst.HasFlag(FlagNSW) {
		words = append(words, "nsw")
	}
	if inst.HasFlag(FlagExact) {
		words = append(words, "exact")
	}
	if len(words) == 0 {
		return ""
	}
	return " " + strings.Join(words, " ")
}

func volatileWord(inst *Instruction) string {
	if inst.IsVolatile() {
		return "volatile "
	}
	return ""
}

func alignSuffix(align uint32) string {
	if align == 0 {
		return ""
	}
	return fmt.Sprintf(", align %d", align)
}

func (n namer) inst(inst *Instruction) string {
	var sb strings.Builder
	if !inst.typ.IsVoid() {
		sb.WriteString(n.value(inst.id))
		sb.WriteString(" = ")
	}
	ops := inst.operands
	switch op := inst.Op; {
	case op.IsBinary():
		fmt.Fprintf(&sb, "%s%s %s, %s", op, flagWords(inst), n.typed(ops[0]), n.value(ops[1]))
	case op == OpICmp:
		fmt.Fprintf(&sb, "icmp %s %s, %s", inst.Pred, n.typed(ops[0]), n.value(ops[1]))
	case op == OpSelect:
		fmt.Fprintf(&sb, "select %s, %s, %s", n.typed(ops[0]), n.typed(ops[1]), n.typed(ops[2]))
	case op == OpPhi:
		edges := make([]string, len(ops))
		for i, v := range ops {
			edges[i] = fmt.Sprintf("[ %s, %s ]", n.value(v), n.block(inst.Targets[i]))
		}
		fmt.Fprintf(&sb, "phi %s %s", inst.typ, strings.Join(edges, ", "))
	case op == OpBr:
		fmt.Fprintf(&sb, "br label %s", n.block(inst.Targets[0]))
	case op == OpCondBr:
		fmt.Fprintf(&sb, "br %s, label %s, label %s", n.typed(ops[0]), n.block(inst.Targets[0]), n.block(inst.Targets[1]))
	case op == OpRet:
		if len(ops) == 0 {
			sb.WriteString("ret void")
		} else {
			fmt.Fprintf(&sb, "ret %s", n.typed(ops[0]))
		}
	case op == OpCall:
		if inst.IsTailCall() {
			sb.WriteString("tail ")
		}
		args := make([]string, len(ops)-1)
		for i, a := range ops[1:] {
			args[i] = n.typed(a)
		}
		fmt.Fprintf(&sb, "call %s %s(%s)", inst.typ, n.value(ops[0]), strings.Join(args, ", "))
		for _, a := range inst.Attrs.Names() {
			sb.WriteString(" " + a)
		}
		sb.WriteString(alignSuffix(inst.Align))
	case op == OpLoad:
		fmt.Fprintf(&sb, "load %s%s, %s%s", volatileWord(inst), inst.typ, n.typed(ops[0]), alignSuffix(inst.Align))
	case op == OpStore:
		fmt.Fprintf(&sb, "store %s%s, %s%s", volatileWord(inst), n.typed(ops[0]), n.typed(ops[1]), alignSuffix(inst.Align))
	case op == OpGEP:
		fmt.Fprintf(&sb, "getelementptr %s, %s, %s", inst.ElemType, n.typed(ops[0]), n.typed(ops[1]))
	case op.IsCast():
		fmt.Fprintf(&sb, "%s %s to %s", op, n.typed(ops[0]), inst.typ)
	case op == OpExtractValue:
		fmt.Fprintf(&sb, "extractvalue %s, %d", n.typed(ops[0]), inst.Indices[0])
	case op == OpInsertValue:
		fmt.Fprintf(&sb, "insertvalue %s, %s, %d", n.typed(ops[0]), n.typed(ops[1]), inst.Indices[0])
	case op == OpCmpXchg:
		fmt.Fprintf(&sb, "cmpxchg %s%s, %s, %s %s %s", volatileWord(inst),
			n.typed(ops[0]), n.typed(ops[1]), n.typed(ops[2]), inst.SuccessOrdering, inst.FailureOrdering)
	default:
		fmt.Fprintf(&sb, "%s", op)
	}
	for _, md := range inst.Metadata {
		fmt.Fprintf(&sb, ", !%s %s", md.Kind, md.Node)
	}
	return sb.String()
}

func (n namer) header(f *Function) string {
	var sb strings.Builder
	if f.IsDeclaration() {
		sb.WriteString("declare ")
	} else {
		sb.WriteString("define ")
		if f.Linkage == InternalLinkage {
			sb.WriteString("internal ")
		}
	}
	fmt.Fprintf(&sb, "%s @%s(", f.sig.Ret, f.Name())
	for i, a := range f.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.sig.Params[i].String())
		for _, attr := range f.ParamAttrs[i].Names() {
			sb.WriteString(" " + attr)
		}
		if f.ParamAlign[i] != 0 {
			fmt.Fprintf(&sb, " align %d", f.ParamAlign[i])
		}
		if !f.IsDeclaration() {
			sb.WriteString(" " + n.value(a))
		}
	}
	sb.WriteString(")")
	for _, attr := range f.Attrs.Names() {
		sb.WriteString(" " + attr)
	}
	return sb.String()
}

// FprintFunction writes f in LLVM-like textual form.
func FprintFunction(w io.Writer, f *Function) error {
	n := newNamer(f)
	var buf bytes.Buffer
	buf.WriteString(n.header(f))
	if f.IsDeclaration() {
		buf.WriteString("\n")
		_, err := w.Write(buf.Bytes())
		return err
	}
	buf.WriteString(" {\n")
	for i, b := range f.blocks {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s:\n", n.blocks[b])
		for _, inst := range b.insts {
			fmt.Fprintf(&buf, "  %s\n", n.inst(inst))
		}
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// FunctionString returns the textual form of f.
func FunctionString(f *Function) string {
	var sb strings.Builder
	_ = FprintFunction(&sb, f)
	return sb.String()
}

// Fprint writes every function of p, separated by blank lines.
func Fprint(w io.Writer, p *Program) error {
	for i, f := range p.funcs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := FprintFunction(w, f); err != nil {
			return err
		}
	}
	return nil
}

// String returns the textual form of the whole program.
func (p *Program) String() string {
	var sb strings.Builder
	_ = Fprint(&sb, p)
	return sb.String()
}
