package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <data dir> [castle|towne|dwelling|keep ...]\n", os.Args[0])
		os.Exit(1)
	}

	dir := os.Args[1]
	masters := gamedata.MasterFiles
	if len(os.Args) > 2 {
		masters = nil
		for _, arg := range os.Args[2:] {
			m, err := gamedata.ParseMasterFile(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unknown master file %q\n", arg)
				os.Exit(1)
			}
			masters = append(masters, m)
		}
	}

	ovl, err := gamedata.ReadDataOvl(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	words, err := ovl.CompressedWords()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	v := &ScriptValidator{dict: talk.NewWordTable(words)}
	for _, m := range masters {
		v.validateFile(dir, m)
	}

	fmt.Printf("\n%d scripts checked, %d failed\n", v.checked, len(v.errors))
	if len(v.errors) > 0 {
		fmt.Fprintf(os.Stderr, "Validation errors:\n%s\n", strings.Join(v.errors, "\n"))
		os.Exit(1)
	}
	fmt.Println("All scripts are valid!")
}

// ScriptValidator decodes and builds every script in a set of .tlk files.
type ScriptValidator struct {
	dict    talk.Dictionary
	checked int
	errors  []string
}

func (v *ScriptValidator) validateFile(dir string, master gamedata.MasterFile) {
	fmt.Printf("Validating %s...\n", master.Filename())

	scripts, err := gamedata.LoadTalkFile(dir, master)
	if err != nil {
		v.errors = append(v.errors, fmt.Sprintf("  - %s: %v", master.Filename(), err))
		return
	}

	for npc := 0; npc < 256; npc++ {
		data, ok := scripts[npc]
		if !ok {
			continue
		}
		v.checked++
		name, err := v.validateScript(data)
		if err != nil {
			v.errors = append(v.errors, fmt.Sprintf("  - %s npc %d: %v", master, npc, err))
			fmt.Printf("  %3d  FAIL  %v\n", npc, err)
			continue
		}
		fmt.Printf("  %3d  ok    %s\n", npc, name)
	}
}

// validateScript decodes and builds a script, then splits every line the
// interpreter can run. It returns the NPC's name.
func (v *ScriptValidator) validateScript(data []byte) (string, error) {
	lines, err := talk.Decode(data, v.dict)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	script, err := talk.Build(lines)
	if err != nil {
		return "", fmt.Errorf("build: %w", err)
	}
	check := func(what string, line talk.Line) error {
		if _, err := talk.Split(line); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	}

	for _, slot := range []talk.Slot{talk.SlotDescription, talk.SlotGreeting, talk.SlotJob, talk.SlotBye} {
		if err := check(slot.String(), script.Slot(slot)); err != nil {
			return "", err
		}
	}
	if err := checkAnswers("answer", script.Questions(), check); err != nil {
		return "", err
	}
	for _, label := range script.Labels() {
		what := fmt.Sprintf("label %d", label.ID)
		if err := check(what, label.Initial); err != nil {
			return "", err
		}
		for _, line := range label.Defaults {
			if err := check(what+" default", line); err != nil {
				return "", err
			}
		}
		if err := checkAnswers(what+" answer", label.Questions, check); err != nil {
			return "", err
		}
	}
	return script.Name(), nil
}

func checkAnswers(what string, table *talk.QuestionTable, check func(string, talk.Line) error) error {
	if table == nil {
		return nil
	}
	for _, qa := range table.Answers() {
		if err := check(fmt.Sprintf("%s %q", what, strings.Join(qa.Keywords, "|")), qa.Answer); err != nil {
			return err
		}
	}
	return nil
}
