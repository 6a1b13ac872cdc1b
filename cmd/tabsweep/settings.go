package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	appconfig "github.com/entrhq/tabsweep/pkg/config"
	"gopkg.in/yaml.v3"
)

func runConfig(_ context.Context, a *app, args []string) error {
	action := "show"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "show":
		data := make(map[string]map[string]any)
		for _, s := range a.manager.GetSections() {
			data[s.ID()] = s.Data()
		}
		return a.render(data, func(w io.Writer) { renderSettings(w, a.manager.GetSections()) })
	case "set":
		if len(args) == 0 {
			return fmt.Errorf("expected section.key=value")
		}
		for _, kv := range args {
			if err := setConfigValue(a.manager, kv); err != nil {
				return err
			}
		}
	case "heavy-add":
		if len(args) == 0 {
			return fmt.Errorf("expected at least one domain pattern")
		}
		for _, p := range args {
			a.settings.AddHeavyDomain(strings.ToLower(strings.TrimSpace(p)))
		}
	case "heavy-remove":
		if len(args) == 0 {
			return fmt.Errorf("expected at least one domain pattern")
		}
		for _, p := range args {
			if !a.settings.RemoveHeavyDomain(p) {
				return fmt.Errorf("%q is not a heavy domain pattern", p)
			}
		}
	case "reset":
		a.manager.ResetAll()
	default:
		return fmt.Errorf("unknown config action %q (use show, set, heavy-add, heavy-remove or reset)", action)
	}

	if err := a.manager.SaveAll(); err != nil {
		return err
	}
	saved := "Saved settings"
	if fs, ok := a.manager.Store().(*appconfig.FileStore); ok {
		saved += " to " + fs.Path()
	}
	fmt.Fprintln(a.out, okStyle.Render(saved))
	return nil
}

// setConfigValue applies one "section.key=value" assignment. Values are read
// as YAML scalars or lists, except for keys that hold text (durations and
// paths), which take the raw value.
func setConfigValue(m *appconfig.Manager, assignment string) error {
	key, raw, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("expected section.key=value, got %q", assignment)
	}
	sectionID, field, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok {
		return fmt.Errorf("expected section.key=value, got %q", assignment)
	}
	section, ok := m.GetSection(sectionID)
	if !ok {
		return fmt.Errorf("unknown settings section %q", sectionID)
	}

	current, known := section.Data()[field]
	if !known {
		return fmt.Errorf("unknown setting %s.%s (known: %s)", sectionID, field, strings.Join(settingKeys(section.Data()), ", "))
	}

	raw = strings.TrimSpace(raw)
	var value any
	switch current.(type) {
	case string:
		value = raw
	case []string:
		if strings.HasPrefix(raw, "[") {
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("invalid list for %s.%s: %w", sectionID, field, err)
			}
		} else {
			var items []string
			for _, item := range strings.Split(raw, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			value = items
		}
	default:
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("invalid value for %s.%s: %w", sectionID, field, err)
		}
	}
	return section.SetData(map[string]any{field: value})
}

func settingKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderSettings(w io.Writer, sections []appconfig.Section) {
	for _, s := range sections {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(s.Title()), mutedStyle.Render(s.Description()))
		data := s.Data()
		for _, k := range settingKeys(data) {
			fmt.Fprintf(w, "  %s.%s = %v\n", s.ID(), k, data[k])
		}
	}
}
