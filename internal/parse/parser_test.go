//go:build cgo

package parse

import (
	"context"
	"testing"
)

func parseTS(t *testing.T, source string) *FileInfo {
	t.Helper()
	info, err := NewParser().ParseSource(context.Background(), "test.ts", []byte(source), LangTypeScript)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return info
}

func TestParseTypeScriptClass(t *testing.T) {
	info := parseTS(t, `/**
 * Plans ADO releases.
 */
export class PlanAdoOrchestrator {
  constructor(private client: AdoClient, retries = 3) {}
}

class Internal {}
`)

	if len(info.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d: %+v", len(info.Entities), info.Entities)
	}

	plan := info.Entities[0]
	if plan.Name != "PlanAdoOrchestrator" {
		t.Errorf("Name = %q", plan.Name)
	}
	if !plan.HasDocComment {
		t.Error("doc comment not detected")
	}
	if !plan.Exported {
		t.Error("exported class not detected")
	}
	if plan.RequiredCtorArgs != 1 {
		t.Errorf("RequiredCtorArgs = %d, want 1 (defaulted param is optional)", plan.RequiredCtorArgs)
	}

	internal := info.Entities[1]
	if internal.Exported {
		t.Error("non-exported class marked exported")
	}
	if internal.HasDocComment {
		t.Error("comment attached to the wrong declaration")
	}
	if internal.RequiredCtorArgs != -1 {
		t.Errorf("class without constructor: RequiredCtorArgs = %d, want -1", internal.RequiredCtorArgs)
	}
}

func TestParseDetachedCommentIsNotDoc(t *testing.T) {
	info := parseTS(t, `// stray note

export class GapOrchestrator {}
`)
	if len(info.Entities) != 1 {
		t.Fatalf("entities: %+v", info.Entities)
	}
	if info.Entities[0].HasDocComment {
		t.Error("comment separated by a blank line should not count as doc")
	}
}

func TestParseZeroArgConstructor(t *testing.T) {
	info := parseTS(t, `export class TriageAgent {
  constructor() {}
}
`)
	if info.Entities[0].RequiredCtorArgs != 0 {
		t.Errorf("RequiredCtorArgs = %d, want 0", info.Entities[0].RequiredCtorArgs)
	}
}

func TestParseTypeScriptImports(t *testing.T) {
	info := parseTS(t, `import { AdoClient } from './ado-client';
import * as fs from 'fs';
`)
	if len(info.Imports) != 2 {
		t.Fatalf("imports: %+v", info.Imports)
	}
	if info.Imports[0].Spec != "./ado-client" || info.Imports[0].Line != 1 {
		t.Errorf("first import = %+v", info.Imports[0])
	}
	if info.Imports[1].Spec != "fs" {
		t.Errorf("second import = %+v", info.Imports[1])
	}
}

func TestParsePythonClass(t *testing.T) {
	source := `from .base import BaseAgent
import os

class TriageAgent(BaseAgent):
    """Routes incoming issues to owners."""

    def __init__(self, client, limit=10):
        self.client = client


class _Hidden:
    pass
`
	info, err := NewParser().ParseSource(context.Background(), "triage.py", []byte(source), LangPython)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(info.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %+v", info.Entities)
	}

	triage := info.Entities[0]
	if triage.Name != "TriageAgent" || !triage.Exported {
		t.Errorf("triage entity = %+v", triage)
	}
	if !triage.HasDocComment {
		t.Error("docstring not detected")
	}
	if triage.RequiredCtorArgs != 1 {
		t.Errorf("RequiredCtorArgs = %d, want 1 (self and defaults excluded)", triage.RequiredCtorArgs)
	}

	hidden := info.Entities[1]
	if hidden.Exported {
		t.Error("underscore class marked exported")
	}
	if hidden.RequiredCtorArgs != -1 {
		t.Errorf("no __init__: RequiredCtorArgs = %d, want -1", hidden.RequiredCtorArgs)
	}

	if len(info.Imports) != 2 {
		t.Fatalf("imports: %+v", info.Imports)
	}
	if info.Imports[0].Spec != ".base" {
		t.Errorf("relative import = %+v", info.Imports[0])
	}
	if info.Imports[1].Spec != "os" {
		t.Errorf("plain import = %+v", info.Imports[1])
	}
}

func TestParseGoType(t *testing.T) {
	source := `package worker

import "context"

// Pool runs bounded workers.
type Pool struct{}

func NewPool(size int) *Pool { return nil }
`
	info, err := NewParser().ParseSource(context.Background(), "pool.go", []byte(source), LangGo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(info.Entities) != 1 {
		t.Fatalf("entities: %+v", info.Entities)
	}
	pool := info.Entities[0]
	if pool.Name != "Pool" || !pool.Exported || !pool.HasDocComment {
		t.Errorf("entity = %+v", pool)
	}
	if pool.RequiredCtorArgs != 1 {
		t.Errorf("RequiredCtorArgs = %d, want 1 (NewPool takes size)", pool.RequiredCtorArgs)
	}
	if len(info.Imports) != 1 || info.Imports[0].Spec != "context" {
		t.Errorf("imports: %+v", info.Imports)
	}
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	info, err := NewParser().ParseFile(context.Background(), "README.md")
	if err != nil {
		t.Fatalf("unsupported extension should not error: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil info, got %+v", info)
	}
}

func TestLanguageFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{".ts", LangTypeScript, true},
		{".tsx", LangTSX, true},
		{".mjs", LangJavaScript, true},
		{".py", LangPython, true},
		{".go", LangGo, true},
		{".md", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageFromExtension(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageFromExtension(%q) = (%q, %v)", tt.ext, got, ok)
		}
	}
}
