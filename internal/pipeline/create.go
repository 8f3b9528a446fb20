package pipeline

import (
	"context"
	"strings"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/classifier"
)

// createEntities creates proposed entities for the kinds auto-creation is
// enabled for, patching the new identifiers back into the resolution. Every
// kind defaults to off so creation stays human-gated. Individual creation
// failures are logged and skipped; they degrade confidence, nothing more.
func createEntities(ctx context.Context, rt *Runtime, r *run) error {
	res := r.resolution
	dirty := false

	if rt.Options.AutoCreateCorrespondents {
		for _, name := range res.CreateNew.Correspondents {
			created := createOne(ctx, rt, r, archive.KindCorrespondent, name)
			if created == nil {
				continue
			}
			dirty = true
			if res.Correspondent != nil && strings.EqualFold(res.Correspondent.Name, name) {
				id := created.ID
				res.CorrespondentID = &id
				res.Correspondent.ID = id
				res.Correspondent.Type = classifier.MatchExact
				res.Correspondent.Score = 1.0
			}
		}
	}

	if rt.Options.AutoCreateDocumentTypes {
		for _, name := range res.CreateNew.DocumentTypes {
			created := createOne(ctx, rt, r, archive.KindDocumentType, name)
			if created == nil {
				continue
			}
			dirty = true
			if res.DocumentType != nil && strings.EqualFold(res.DocumentType.Name, name) {
				id := created.ID
				res.DocumentTypeID = &id
				res.DocumentType.ID = id
				res.DocumentType.Type = classifier.MatchExact
				res.DocumentType.Score = 1.0
			}
		}
	}

	if rt.Options.AutoCreateTags {
		for _, name := range res.CreateNew.Tags {
			created := createOne(ctx, rt, r, archive.KindTag, name)
			if created == nil {
				continue
			}
			dirty = true
			res.TagIDs = append(res.TagIDs, created.ID)
			for i := range res.TagMatches {
				if strings.EqualFold(res.TagMatches[i].Name, name) {
					res.TagMatches[i].ID = created.ID
					res.TagMatches[i].Type = classifier.MatchExact
					res.TagMatches[i].Score = 1.0
				}
			}
		}
	}

	if dirty {
		if err := rt.Cache.Refresh(ctx); err != nil {
			rt.Logger.WarnContext(ctx, "cache refresh after entity creation failed", "error", err)
		}
	}
	return nil
}

// createOne creates a single entity unless a matching name appeared in the
// cache since resolution.
func createOne(ctx context.Context, rt *Runtime, r *run, kind archive.EntityKind, name string) *archive.Entity {
	if _, ok := rt.Cache.Lookup(kind, name); ok {
		rt.Logger.DebugContext(ctx, "entity already exists, skipping creation",
			"kind", kind, "name", name,
		)
		return nil
	}

	created, err := rt.Archive.CreateEntity(ctx, kind, name)
	if err != nil {
		rt.Logger.WarnContext(ctx, "entity creation failed",
			"kind", kind, "name", name, "error", err,
		)
		return nil
	}

	r.created = append(r.created, CreatedEntity{Kind: kind, Name: name, ID: created.ID})
	return created
}
