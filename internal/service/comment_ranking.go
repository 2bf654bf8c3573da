package service

import "medfeed/internal/models"

// CommentPageSize is the number of top-level comments per page.
const CommentPageSize = 10

// RankComments orders comments in three tiers: the post owner's, then the
// viewer's, then everyone else's. Order within a tier is the input order.
// The input slice is not modified.
func RankComments(comments []*models.Comment, ownerID, viewerID uint) []*models.Comment {
	ranked := make([]*models.Comment, 0, len(comments))
	var viewer, others []*models.Comment
	for _, c := range comments {
		switch {
		case c.AuthorID == ownerID:
			ranked = append(ranked, c)
		case viewerID != 0 && c.AuthorID == viewerID:
			viewer = append(viewer, c)
		default:
			others = append(others, c)
		}
	}
	ranked = append(ranked, viewer...)
	return append(ranked, others...)
}

// pageBounds returns the [start, end) window of a 1-based page.
func pageBounds(total, page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}
