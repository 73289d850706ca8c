package review

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the instruction set for one coach.
type Profile struct {
	Category     Category
	Area         string
	Focus        string
	Instructions []string
}

// SystemPrompt assembles the coach's full system prompt.
func (p Profile) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(baseCoach(p.Area))
	if p.Focus != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Focus)
	}
	if len(p.Instructions) > 0 {
		b.WriteString("\n\nAdditional instructions:\n")
		for _, in := range p.Instructions {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Profiles maps each category to its coach.
type Profiles map[Category]Profile

// DefaultProfiles returns the built-in coaches.
func DefaultProfiles() Profiles {
	return Profiles{
		CategoryPerformance: {
			Category: CategoryPerformance,
			Area:     "Performance",
			Focus: `You should focus on the Performance of the code. This might include things like algorithmic complexity, memory usage, and execution speed. Some red flags might be inefficient loops, unnecessary memory allocations, or slow algorithms.

Do not feature feedback about Readability. Only give feedback on Performance.`,
		},
		CategoryReadability: {
			Category: CategoryReadability,
			Area:     "Readability and Code Quality",
			Focus: `You should focus on the Readability of the code and general code quality. This might include elements like variable names, code structure, DRY, and overall readability.

Do not feature feedback about Performance. Only give feedback on Readability.`,
		},
		CategoryAdvanced: {
			Category: CategoryAdvanced,
			Area:     "Advanced Programming Techniques",
			Focus: `You should focus only on teaching the user advanced techniques and best practices. Explain how they could improve their code by using techniques, approaches, syntax, patterns and language features that they might not be familiar with.

Do not feature feedback about Performance or Readability. Only give feedback on Advanced Techniques.`,
		},
		CategoryBug: {
			Category: CategoryBug,
			Area:     "Bugs and Errors",
			Focus: `You should focus on identifying and explaining bugs and errors in the code. This might include syntax errors, runtime errors, or logical errors. Do not give away the solution, but provide hints and guidance on how to fix the issue. Try to coach the user towards understanding the error and how to debug it.

Do not feature feedback about Performance or Readability. Only give feedback on Bugs and Errors.`,
		},
	}
}

// For returns the profile for c, falling back to a bare coach named after
// the category.
func (ps Profiles) For(c Category) Profile {
	if p, ok := ps[c]; ok {
		return p
	}
	return Profile{Category: c, Area: string(c)}
}

type profileFile struct {
	Profiles map[string]profileOverride `yaml:"profiles"`
}

type profileOverride struct {
	Area         string   `yaml:"area"`
	Focus        string   `yaml:"focus"`
	Instructions []string `yaml:"instructions"`
}

// LoadProfiles reads a YAML overrides file on top of the defaults.
// An empty path returns the defaults.
//
//	profiles:
//	  bug:
//	    instructions:
//	      - Flag unchecked errors.
func LoadProfiles(path string) (Profiles, error) {
	ps := DefaultProfiles()
	if path == "" {
		return ps, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing profiles file: %w", err)
	}
	for name, o := range pf.Profiles {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("profiles file: %w", err)
		}
		p := ps[c]
		if o.Area != "" {
			p.Area = o.Area
		}
		if o.Focus != "" {
			p.Focus = o.Focus
		}
		p.Instructions = append(p.Instructions, o.Instructions...)
		ps[c] = p
	}
	return ps, nil
}
