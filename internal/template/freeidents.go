package template

import (
	"fmt"
	"text/template/parse"
)

// freeIdentifiers parses source once and collects the top-level field names
// referenced off the template's "." (e.g. {{ .Cluster }} contributes
// "Cluster"). Nested fields (.Node.Cluster) contribute only the
// root identifier "Node": pruning operates at the granularity of context
// entries, which are whole named values.
func freeIdentifiers(source string) (map[string]bool, error) {
	// SkipFuncCheck: this pass only wants field references, and the real
	// function set (sprig + helpers) is only known to Compile.
	tree := parse.New("template")
	tree.Mode = parse.SkipFuncCheck
	treeSet := make(map[string]*parse.Tree)
	if _, err := tree.Parse(source, "", "", treeSet); err != nil {
		return nil, fmt.Errorf("parse for free identifiers: %w", err)
	}

	idents := make(map[string]bool)
	for _, t := range treeSet {
		if t.Root != nil {
			walkNode(t.Root, idents)
		}
	}
	return idents, nil
}

func walkNode(node parse.Node, idents map[string]bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkNode(child, idents)
		}
	case *parse.ActionNode:
		walkPipe(n.Pipe, idents)
	case *parse.IfNode:
		walkPipe(n.Pipe, idents)
		walkNode(n.List, idents)
		walkNode(n.ElseList, idents)
	case *parse.RangeNode:
		walkPipe(n.Pipe, idents)
		walkNode(n.List, idents)
		walkNode(n.ElseList, idents)
	case *parse.WithNode:
		walkPipe(n.Pipe, idents)
		walkNode(n.List, idents)
		walkNode(n.ElseList, idents)
	case *parse.TemplateNode:
		walkPipe(n.Pipe, idents)
	}
}

func walkPipe(pipe *parse.PipeNode, idents map[string]bool) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			walkArg(arg, idents)
		}
	}
}

func walkArg(arg parse.Node, idents map[string]bool) {
	switch a := arg.(type) {
	case *parse.FieldNode:
		if len(a.Ident) > 0 {
			idents[a.Ident[0]] = true
		}
	case *parse.ChainNode:
		walkArg(a.Node, idents)
	case *parse.PipeNode:
		walkPipe(a, idents)
	}
}
