package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"medfeed/internal/models"
	"medfeed/internal/repository"

	"github.com/graph-gophers/dataloader"
)

// newReplyLoader batches "replies of comment N" lookups into one query per
// tree level. A loader lives for a single read.
func newReplyLoader(comments repository.CommentRepository) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		parentIDs := make([]uint, len(keys))
		for i, key := range keys {
			id, err := strconv.ParseUint(key.String(), 10, 64)
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("bad comment key %q: %w", key.String(), err)}
				continue
			}
			parentIDs[i] = uint(id)
		}

		replies, err := comments.ListByParentIDs(ctx, parentIDs)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byParent := make(map[uint][]*models.Comment, len(keys))
		for _, r := range replies {
			if r.ParentID != nil {
				byParent[*r.ParentID] = append(byParent[*r.ParentID], r)
			}
		}
		for i, id := range parentIDs {
			if results[i] == nil {
				results[i] = &dataloader.Result{Data: byParent[id]}
			}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batchFn,
		dataloader.WithWait(2*time.Millisecond),
		dataloader.WithCache(&dataloader.NoCache{}),
	)
}

// loadReplies sets Replies on every parent and returns all loaded replies in
// parent order.
func loadReplies(ctx context.Context, loader *dataloader.Loader, parents []*models.Comment) ([]*models.Comment, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	keys := make([]string, len(parents))
	for i, p := range parents {
		keys[i] = strconv.FormatUint(uint64(p.ID), 10)
	}

	data, errs := loader.LoadMany(ctx, dataloader.NewKeysFromStrings(keys))()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("load replies: %w", err)
		}
	}

	var all []*models.Comment
	for i, p := range parents {
		replies, _ := data[i].([]*models.Comment)
		p.Replies = replies
		all = append(all, replies...)
	}
	return all, nil
}
