// Package parts defines the per-slot subtasks of a sync item and the runner
// that executes whichever slots the packed retry status still marks pending.
package parts

import (
	"context"

	"github.com/google/uuid"

	"github.com/tendant/simple-mediasync/pkg/schema"
)

// Item is one sync target handed to the runner. Parts maps the well-known
// part names of the item's kind to the URLs they are fetched from.
type Item struct {
	ID    uuid.UUID
	Kind  schema.ItemKind
	Parts map[string]string
}

// Part is one slot's work. The runner never invokes Run once the slot is
// terminal, so Run only has to be safe to call again after its own failures.
type Part struct {
	Name string
	Run  func(ctx context.Context, item Item) error
}

// VideoParts returns the item-level slot set in packed order: cover, info,
// uploader avatar, uploader info, page list.
func VideoParts(f *Fetcher) []Part {
	return []Part{
		{Name: "cover", Run: f.downloadCover},
		{Name: "info", Run: f.download("info")},
		{Name: "uploader_avatar", Run: f.download("uploader_avatar")},
		{Name: "uploader_info", Run: f.download("uploader_info")},
		{Name: "page_list", Run: f.download("page_list")},
	}
}

// PageParts returns the page-level slot set in packed order: cover, content,
// info, comments, subtitles.
func PageParts(f *Fetcher) []Part {
	return []Part{
		{Name: "cover", Run: f.downloadCover},
		{Name: "content", Run: f.download("content")},
		{Name: "info", Run: f.download("info")},
		{Name: "comments", Run: f.download("comments")},
		{Name: "subtitles", Run: f.download("subtitles")},
	}
}
