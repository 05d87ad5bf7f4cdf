package mirror

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/treemirror/model/tree"
	"go.uber.org/zap"
)

// DisableAll appends the disable suffix to every file of the folder at p
// except the marker. Per file failures are logged and skipped; the number of
// renamed files is returned.
func (s *Service) DisableAll(ctx context.Context, p string) (int, error) {
	return s.toggleAll(ctx, p, true)
}

// EnableAll strips the disable suffix from the files of the folder at p.
func (s *Service) EnableAll(ctx context.Context, p string) (int, error) {
	return s.toggleAll(ctx, p, false)
}

func (s *Service) toggleAll(ctx context.Context, p string, disable bool) (int, error) {
	changed := 0
	err := s.run(ctx, statusToggling, 0, func(ctx context.Context) error {
		folder, f, err := s.resolve(p)
		if err != nil {
			return err
		}
		if f != nil {
			return fmt.Errorf("%w: %v is a file", ErrInvalidPath, tree.Normalize(p))
		}
		suffix := s.config.DisableSuffix
		files := append([]*tree.File(nil), folder.Files...)
		for _, candidate := range files {
			if candidate.Name == s.config.Marker {
				continue
			}
			disabled := strings.HasSuffix(candidate.Name, suffix)
			var newName string
			switch {
			case disable && !disabled:
				newName = candidate.Name + suffix
			case !disable && disabled:
				newName = strings.TrimSuffix(candidate.Name, suffix)
			default:
				continue
			}
			if newName == "" || folder.Has(newName) {
				s.logger.Warn("toggle target taken", zap.String("path", candidate.Path), zap.String("name", newName))
				continue
			}
			if err = s.moveFile(ctx, folder, candidate, folder, newName); err != nil {
				s.logger.Warn("failed to toggle file", zap.String("path", candidate.Path), zap.Error(err))
				continue
			}
			changed++
		}
		return nil
	})
	return changed, err
}
