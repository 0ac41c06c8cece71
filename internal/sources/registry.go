package sources

import (
	"strings"

	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/intake"
)

// Build pairs each source with a listing adapter, producing the job list the
// pipeline consumes. Order follows the input slice.
func Build(srcs []intake.Source, client Getter, logger *zap.Logger) []intake.SourceJob {
	jobs := make([]intake.SourceJob, 0, len(srcs))
	for _, src := range srcs {
		jobs = append(jobs, intake.SourceJob{
			Source:  src,
			Adapter: NewListingAdapter(src, client, logger),
		})
	}
	return jobs
}

// Filter restricts srcs to the one matching name, case-insensitively. An
// empty name keeps everything. An unknown name also keeps everything, with a
// warning: a typo on the command line should not silently ingest nothing.
func Filter(srcs []intake.Source, name string, logger *zap.Logger) []intake.Source {
	if name == "" {
		return srcs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, src := range srcs {
		if strings.EqualFold(src.Name, name) {
			return []intake.Source{src}
		}
	}
	logger.Warn("unknown source name, running all sources", zap.String("name", name))
	return srcs
}
