// Package digest computes deterministic content digests for jobs and
// container images. An image digest folds in the digests of the images it
// depends on, so changing a base image invalidates every descendant while
// leaving unrelated images untouched.
package digest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/conveyorci/conveyor/internal/workflow"
)

// Length of the hex digest carried in image tags and cache keys. Truncated
// for readability; blake3 output is uniform so a prefix is safe.
const hexLen = 12

func sum(parts []string) string {
	h := blake3.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:hexLen]
}

// Image computes the digest of one image given the digests of the images it
// depends on. Every dependency must already have a digest; the caller is
// expected to walk images in build order.
func Image(img workflow.Image, deps map[string]string) (string, error) {
	parts := []string{
		"image", img.Name, img.Path,
		strings.Join(img.Platforms, ","),
	}
	sorted := append([]string(nil), img.DependsOn...)
	sort.Strings(sorted)
	for _, dep := range sorted {
		d, ok := deps[dep]
		if !ok {
			return "", fmt.Errorf("digest for image %q: dependency %q has no digest yet", img.Name, dep)
		}
		parts = append(parts, dep, d)
	}
	return sum(parts), nil
}

// Images computes digests for a set of images already sorted in build order.
func Images(sorted []workflow.Image) (map[string]string, error) {
	digests := make(map[string]string, len(sorted))
	for _, img := range sorted {
		d, err := Image(img, digests)
		if err != nil {
			return nil, err
		}
		digests[img.Name] = d
	}
	return digests, nil
}

// Job computes the digest of one job definition.
func Job(job workflow.Job) string {
	parts := []string{
		"job", job.Name, job.Command,
		strings.Join(job.RunsOn, ","),
	}
	keys := make([]string, 0, len(job.Requirements))
	for k := range job.Requirements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k, job.Requirements[k])
	}
	return sum(parts)
}

// Jobs computes digests for all jobs in a workflow.
func Jobs(jobs []workflow.Job) map[string]string {
	digests := make(map[string]string, len(jobs))
	for _, job := range jobs {
		digests[job.Name] = Job(job)
	}
	return digests
}
