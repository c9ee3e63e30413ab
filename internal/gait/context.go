package gait

import (
	gocontext "context"

	gaitcontext "github.com/automateyournetwork/gait/internal/context"
	"github.com/automateyournetwork/gait/internal/schema"
)

type turnLoader struct{ r *Repository }

func (l turnLoader) LoadTurn(ctx gocontext.Context, oid string) (schema.Turn, error) {
	return l.r.getTurn(oid)
}

// BuildContextBundle assembles the current branch's memory manifest and
// its referenced turns into a context-pack bundle. full selects
// whether per-item context/tools/model/tokens/visibility are included.
func (r *Repository) BuildContextBundle(full bool) (gaitcontext.Bundle, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return gaitcontext.Bundle{}, err
	}
	memOID, err := r.memoryOf(branch)
	if err != nil {
		return gaitcontext.Bundle{}, err
	}
	manifest, err := r.getManifest(memOID)
	if err != nil {
		return gaitcontext.Bundle{}, err
	}
	return gaitcontext.BuildContextBundle(gocontext.Background(), turnLoader{r: r}, branch, memOID, manifest, full)
}

// BudgetForMemory aggregates token usage across the current branch's
// pinned memory.
func (r *Repository) BudgetForMemory() (gaitcontext.Budget, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return gaitcontext.Budget{}, err
	}
	memOID, err := r.memoryOf(branch)
	if err != nil {
		return gaitcontext.Budget{}, err
	}
	manifest, err := r.getManifest(memOID)
	if err != nil {
		return gaitcontext.Budget{}, err
	}
	return gaitcontext.BudgetForMemory(gocontext.Background(), turnLoader{r: r}, manifest)
}
