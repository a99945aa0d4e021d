// markers_test.go: Tests for group, command, option and argument markers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"reflect"
	"testing"

	"github.com/agilira/go-errors"
)

type Files struct {
	GroupBase
	last  *Invocation
	calls int
}

func (f *Files) List(inv *Invocation) error {
	f.last = inv
	f.calls++
	return nil
}

func (f *Files) Remove(inv *Invocation) error {
	f.last = inv
	f.calls++
	return nil
}

type ReportTool struct {
	GroupBase
}

func (r *ReportTool) Generate(*Invocation) error { return nil }

func errorCode(err error) string {
	if coder, ok := err.(errors.ErrorCoder); ok {
		return string(coder.ErrorCode())
	}
	return ""
}

func TestGroupNameDerivation(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		want     string
	}{
		{"explicit", "file_ops", "file-ops"},
		{"from type", "", "report-tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			NewGroup[*ReportTool](reg, tt.explicit, "Reports")

			g, ok := Lookup[*GroupDescriptor](reg, KeyGroup, reflect.TypeFor[*ReportTool]())
			if !ok {
				t.Fatal("Group descriptor not stored")
			}
			if g.Name != tt.want || g.Description != "Reports" {
				t.Errorf("Got %+v, want name %q", g, tt.want)
			}
		})
	}
}

func TestGroupMarkerRecordsBaseMixin(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")

	mixins := def.Mixins()
	if len(mixins) != 1 || mixins[0] != "pantheon.GroupBase" {
		t.Errorf("Expected GroupBase in the mixin trail, got %v", mixins)
	}
}

func TestCommandNameDerivation(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", (*Files).List, "", "List")
	def.Command("Remove", (*Files).Remove, "rm", "Remove")

	cs, _ := Lookup[*commandSet](reg, KeyCommands, def.Target())
	list, _ := cs.get("List")
	remove, _ := cs.get("Remove")

	if list.Name != "list" {
		t.Errorf("Expected derived name 'list', got %q", list.Name)
	}
	if remove.Name != "rm" {
		t.Errorf("Expected explicit name 'rm', got %q", remove.Name)
	}
}

func TestCommandRedeclarationKeepsPosition(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", (*Files).List, "", "first")
	def.Command("Remove", (*Files).Remove, "", "")
	def.Command("List", (*Files).List, "ls", "second")

	if got := def.Members(); !reflect.DeepEqual(got, []string{"List", "Remove"}) {
		t.Fatalf("Members() = %v", got)
	}

	cs, _ := Lookup[*commandSet](reg, KeyCommands, def.Target())
	list, _ := cs.get("List")
	if list.Name != "ls" || list.Description != "second" {
		t.Errorf("Expected updated descriptor, got %+v", list.CommandDescriptor)
	}
}

func TestArgumentAndOptionOrder(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", (*Files).List, "", "").
		Argument("<a>", "", ArgumentConfig{}).
		Argument("[b]", "", ArgumentConfig{}).
		Option("-x", "", OptionConfig{}).
		Option("-y", "", OptionConfig{}).
		Option("-z", "", OptionConfig{})

	group, err := ToCommand(reg, &Files{})
	if err != nil {
		t.Fatalf("ToCommand failed: %v", err)
	}
	cmd := group.Commands[0]

	var args, opts []string
	for _, a := range cmd.Arguments {
		args = append(args, a.Name)
	}
	for _, o := range cmd.Options {
		opts = append(opts, o.Flags)
	}

	if !reflect.DeepEqual(args, []string{"<a>", "[b]"}) {
		t.Errorf("Arguments = %v, want [<a> [b]]", args)
	}
	if !reflect.DeepEqual(opts, []string{"-x", "-y", "-z"}) {
		t.Errorf("Options = %v, want [-x -y -z]", opts)
	}
}

func TestOptionConfig(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", (*Files).List, "", "").
		Option("-f, --format <type>", "Output format", OptionConfig{
			DefaultValue:            "text",
			DefaultValueDescription: "plain text",
			ValidValues:             []string{"text", "json"},
			HideFromHelp:            true,
		})

	opts := snapshotOf[OptionDescriptor](reg, KeyOptions, def.Target(), "List")
	if len(opts) != 1 {
		t.Fatalf("Expected one option, got %d", len(opts))
	}
	opt := opts[0]
	if opt.DefaultValue != "text" || opt.DefaultValueDescription != "plain text" {
		t.Errorf("Unexpected default: %v / %q", opt.DefaultValue, opt.DefaultValueDescription)
	}
	if !reflect.DeepEqual(opt.Choices, []string{"text", "json"}) || !opt.Hidden {
		t.Errorf("Unexpected choices/hidden: %v / %v", opt.Choices, opt.Hidden)
	}
}

func TestNilMethodIsReportedAtBuild(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", nil, "", "")

	_, err := ToCommand(reg, &Files{})
	if err == nil {
		t.Fatal("Expected a definition error")
	}
	if code := errorCode(err); code != ErrCodeInvalidDefinition {
		t.Errorf("Expected %s, got %s (%v)", ErrCodeInvalidDefinition, code, err)
	}
}

func TestBuildMethodForm(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[*Files](reg, "files", "")
	def.Command("List", (*Files).List, "", "")

	group, err := def.Build(&Files{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if group.Name != "files" || len(group.Commands) != 1 {
		t.Errorf("Unexpected tree: %+v", group)
	}
}

func TestBuildNilInstance(t *testing.T) {
	reg := NewRegistry()
	def := declareFiles(reg)

	var files *Files
	if _, err := def.Build(files); errorCode(err) != ErrCodeInvalidDefinition {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidDefinition, err)
	}
}

type plainTool struct{}

func (plainTool) Run(*Invocation) error { return nil }

func TestBuildRequiresGroupBase(t *testing.T) {
	reg := NewRegistry()
	def := NewGroup[plainTool](reg, "plain", "")
	def.Command("Run", plainTool.Run, "", "")

	if _, err := def.Build(plainTool{}); errorCode(err) != ErrCodeInvalidDefinition {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidDefinition, err)
	}
}
