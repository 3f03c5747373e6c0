package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/move"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <fighter.json|template.yaml|dir>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, arg := range os.Args[1:] {
		files, err := expand(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, file := range files {
			v := &Validator{}
			if err := v.validateFile(file); err != nil {
				fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("All files are valid!")
}

// expand turns a directory argument into the fighter and template files under
// it. Only files inside fighters/ and templates/ directories are picked up.
func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch parent := filepath.Base(filepath.Dir(p)); filepath.Ext(p) {
		case ".json":
			if parent == "fighters" {
				files = append(files, p)
			}
		case ".yaml", ".yml":
			if parent == "templates" {
				files = append(files, p)
			}
		}
		return nil
	})
	return files, err
}

type Validator struct {
	errors []string
}

func (v *Validator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	if !isValidID(base) {
		return fmt.Errorf("filename '%s' must be lowercase snake_case (e.g., pit_fighter.json, not pit-fighter.json or PitFighter.json)", filepath.Base(filename))
	}

	v.errors = nil
	switch ext {
	case ".json":
		if err := v.validateFighter(filename); err != nil {
			return err
		}
	case ".yaml", ".yml":
		if err := v.validateTemplate(filename); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported file type %s", ext)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *Validator) validateFighter(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var raw actor.FighterSpec
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	spec := &raw
	spec.ID = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if filepath.Base(filepath.Dir(filename)) == "fighters" {
		// resolves template_id against sibling files
		dir := storage.NewFighterDir(filepath.Dir(filepath.Dir(filename)))
		if spec, err = dir.GetFighterSpec(context.Background(), spec.ID); err != nil {
			return fmt.Errorf("file %s: %w", filename, err)
		}
	} else if raw.TemplateID != "" {
		v.addError("template_id only resolves for files in a fighters directory")
		return nil
	}

	f, err := actor.NewFighterFromSpec(spec)
	if err != nil {
		v.addError(err.Error())
		return nil
	}

	moves := f.Moves()
	if len(moves) == 0 {
		v.addError("fighter has no moves")
	}
	seen := make(map[string]bool)
	for _, mv := range moves {
		v.validateMove(mv)
		if seen[mv.Name] {
			v.addError(fmt.Sprintf("move '%s' is defined more than once", mv.Name))
		}
		seen[mv.Name] = true
	}

	if spec.Policy != nil {
		if err := spec.Policy.Validate(); err != nil {
			v.addError(err.Error())
		} else if err := spec.Policy.Effective(spec.Mode).Validate(); err != nil {
			v.addError(fmt.Sprintf("policy in mode %s: %v", spec.Mode, err))
		}
	}
	return nil
}

func (v *Validator) validateMove(mv move.Move) {
	if mv.Name == "" {
		v.addError("move with empty name")
		return
	}
	if mv.Weight <= 0 {
		v.addError(fmt.Sprintf("move '%s' has non-positive weight %.2f", mv.Name, mv.Weight))
	}
	if mv.Cost < 0 {
		v.addError(fmt.Sprintf("move '%s' has negative cost", mv.Name))
	}
	if mv.Tags.IsEmpty() {
		v.addError(fmt.Sprintf("move '%s' has no tags", mv.Name))
	}
	if mv.Has(move.TagAim) && mv.Aim == nil {
		v.addError(fmt.Sprintf("move '%s' is tagged aim but has no aim profile", mv.Name))
	}
}

func (v *Validator) validateTemplate(filename string) error {
	t, err := storage.LoadTemplateFile(filename)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		v.addError(err.Error())
	}
	return nil
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
