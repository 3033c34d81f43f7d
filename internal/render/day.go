package render

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
)

// RenderDay writes one PNG per timestep of day into outDir, named
// frame_0001.png onwards in chronological order, and returns the paths.
// All frames share one extent so the sequence can be encoded as a video.
func RenderDay(outDir string, day *domain.AnimationDay, scene Scene) ([]string, error) {
	if day == nil || len(day.Timesteps) == 0 {
		return nil, ErrNoFrame
	}
	keys, err := sortedTimestamps(day.Timesteps)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	if unset(scene.Extent) {
		extent := frameExtent(scene, nil)
		for _, k := range keys {
			extent = extent.Union(footprintExtent(day.Timesteps[k]))
		}
		scene.Extent = extent
	}

	paths := make([]string, 0, len(keys))
	for i, k := range keys {
		path := filepath.Join(outDir, fmt.Sprintf("frame_%04d.png", i+1))
		if err := writeFrameFile(path, FrameInput{Scene: scene, Timestamp: k, Frame: day.Timesteps[k]}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFrameFile(path string, in FrameInput) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Frame(bw, in); err != nil {
		return fmt.Errorf("render %s: %w", in.Timestamp, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// sortedTimestamps orders RFC 3339 keys by instant, which differs from
// lexical order on the autumn DST day.
func sortedTimestamps(steps map[string]*domain.Frame) ([]string, error) {
	type stamped struct {
		key string
		at  time.Time
	}
	all := make([]stamped, 0, len(steps))
	for k := range steps {
		at, err := time.Parse(time.RFC3339, k)
		if err != nil {
			return nil, fmt.Errorf("timestep %q: %w", k, err)
		}
		all = append(all, stamped{key: k, at: at})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	keys := make([]string, len(all))
	for i, s := range all {
		keys[i] = s.key
	}
	return keys, nil
}
