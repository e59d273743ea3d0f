// Package mirror replicates a regional open-data catalog into the primary
// catalog, prefixing names and titles so mirrored entries are recognizable
// and can be pruned when the source drops them.
package mirror

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencolorado/datamap/internal/catalog"
	"github.com/opencolorado/datamap/internal/config"
)

// Mirror copies packages from a source catalog into a destination catalog.
type Mirror struct {
	src catalog.Client
	dst catalog.Client
	cfg config.MirrorConfig
}

// SyncOpts configures one mirror pass.
type SyncOpts struct {
	DryRun bool // report what would change without writing
	Limit  int  // mirror at most N source packages (0 = all)
}

// Result tallies one mirror pass.
type Result struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// New creates a mirror between the two catalogs.
func New(src, dst catalog.Client, cfg config.MirrorConfig) *Mirror {
	return &Mirror{src: src, dst: dst, cfg: cfg}
}

// Sync mirrors every source package into the destination, then deletes
// destination packages carrying the mirror prefix whose source entry has
// vanished. Individual package failures are counted, not fatal.
func (m *Mirror) Sync(ctx context.Context, opts SyncOpts) (*Result, error) {
	log := zap.L().With(zap.String("component", "mirror"))

	srcIDs, err := m.src.ListPackageIDs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "mirror: list source packages")
	}
	if opts.Limit > 0 && len(srcIDs) > opts.Limit {
		srcIDs = srcIDs[:opts.Limit]
	}
	log.Info("source packages", zap.Int("count", len(srcIDs)))

	result := &Result{}
	mirrored := make(map[string]bool, len(srcIDs))

	for _, id := range srcIDs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		srcPkg, err := m.src.GetPackage(ctx, id)
		if err != nil {
			log.Warn("failed to load source package", zap.String("id", id), zap.Error(err))
			result.Failed++
			continue
		}

		pkg := m.transform(srcPkg)
		mirrored[pkg.Name] = true

		if err := m.upsert(ctx, log, pkg, opts.DryRun, result); err != nil {
			log.Warn("failed to mirror package", zap.String("name", pkg.Name), zap.Error(err))
			result.Failed++
		}
	}

	if err := m.prune(ctx, log, mirrored, opts.DryRun, result); err != nil {
		return nil, err
	}

	log.Info("mirror pass complete",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("failed", result.Failed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return result, nil
}

// transform rewrites a source package into its mirrored form.
func (m *Mirror) transform(src *catalog.Package) *catalog.Package {
	pkg := &catalog.Package{
		Name:      m.cfg.NamePrefix + src.Name,
		Title:     m.cfg.TitlePrefix + src.Title,
		Notes:     src.Notes,
		LicenseID: src.LicenseID,
		Resources: src.Resources,
		Extras:    map[string]string{"mirror_source": src.Name},
	}
	if m.cfg.License != "" {
		pkg.LicenseID = m.cfg.License
	}
	if m.cfg.Group != "" {
		pkg.Groups = []string{m.cfg.Group}
	}
	return pkg
}

func (m *Mirror) upsert(ctx context.Context, log *zap.Logger, pkg *catalog.Package, dryRun bool, result *Result) error {
	existing, err := m.dst.GetPackage(ctx, pkg.Name)
	switch {
	case eris.Is(err, catalog.ErrNotFound):
		if dryRun {
			log.Info("would create package", zap.String("name", pkg.Name))
		} else if err := m.dst.CreatePackage(ctx, pkg); err != nil {
			return err
		}
		result.Created++
		return nil
	case err != nil:
		return err
	default:
		pkg.ID = existing.ID
		if dryRun {
			log.Info("would update package", zap.String("name", pkg.Name))
		} else if err := m.dst.UpdatePackage(ctx, pkg); err != nil {
			return err
		}
		result.Updated++
		return nil
	}
}

// prune removes mirrored destination packages whose source entry is gone.
// Only packages carrying the mirror name prefix are ever deleted.
func (m *Mirror) prune(ctx context.Context, log *zap.Logger, mirrored map[string]bool, dryRun bool, result *Result) error {
	if m.cfg.NamePrefix == "" {
		return nil
	}

	dstIDs, err := m.dst.ListPackageIDs(ctx)
	if err != nil {
		return eris.Wrap(err, "mirror: list destination packages")
	}

	for _, id := range dstIDs {
		if !strings.HasPrefix(id, m.cfg.NamePrefix) || mirrored[id] {
			continue
		}

		if dryRun {
			log.Info("would delete package", zap.String("name", id))
		} else if err := m.dst.DeletePackage(ctx, id); err != nil {
			log.Warn("failed to delete package", zap.String("name", id), zap.Error(err))
			result.Failed++
			continue
		}
		result.Deleted++
	}
	return nil
}
