package engine

import "fmt"

// sortSteps returns the steps in dependency-respecting execution order
// using Kahn's algorithm, and rejects unknown dependencies and cycles.
func sortSteps(steps []*Step) ([]*Step, error) {
	byName := make(map[string]*Step, len(steps))
	for _, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("step with empty name")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate step %q", s.Name)
		}
		byName[s.Name] = s
	}

	inDegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string)
	for _, s := range steps {
		inDegree[s.Name] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("step %q depends on unknown step %q", s.Name, dep)
			}
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	var queue []string
	for _, s := range steps {
		if inDegree[s.Name] == 0 {
			queue = append(queue, s.Name)
		}
	}

	var sorted []*Step
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted = append(sorted, byName[name])

		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(steps) {
		return nil, fmt.Errorf("dependency cycle detected in step graph")
	}
	return sorted, nil
}

// Reverse returns a reversed copy of the steps. Destruction runs the
// creation sequence backwards.
func Reverse(steps []*Step) []*Step {
	out := make([]*Step, len(steps))
	for i, s := range steps {
		out[len(steps)-1-i] = s
	}
	return out
}
