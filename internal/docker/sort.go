// Package docker derives image build order and talks to the image registry
// through the local docker CLI.
package docker

import (
	"fmt"
	"sort"

	"github.com/conveyorci/conveyor/internal/workflow"
)

// SortInBuildOrder returns the images ordered so that every image appears
// after all images it depends on. Duplicate names, unknown dependencies and
// dependency cycles are configuration bugs and are rejected outright.
func SortInBuildOrder(images []workflow.Image) ([]workflow.Image, error) {
	byName := make(map[string]workflow.Image, len(images))
	for _, img := range images {
		if _, dup := byName[img.Name]; dup {
			return nil, fmt.Errorf("duplicate image name %q", img.Name)
		}
		byName[img.Name] = img
	}

	indegree := make(map[string]int, len(images))
	dependents := make(map[string][]string, len(images))
	for _, img := range images {
		indegree[img.Name] += 0
		for _, dep := range img.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("image %q depends on unknown image %q", img.Name, dep)
			}
			indegree[img.Name]++
			dependents[dep] = append(dependents[dep], img.Name)
		}
	}

	// Kahn's algorithm; the ready set is kept sorted so the build order is
	// deterministic across runs.
	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	sorted := make([]workflow.Image, 0, len(images))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		sorted = append(sorted, byName[name])

		released := dependents[name]
		sort.Strings(released)
		for _, dep := range released {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		sort.Strings(ready)
	}

	if len(sorted) != len(images) {
		return nil, fmt.Errorf("dependency cycle among images")
	}
	return sorted, nil
}
