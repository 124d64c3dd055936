package contents

import (
	"context"
	"fmt"
	"time"
)

type Article struct {
	ID           string
	AuthorID     string
	Title        string
	Body         string
	CommentCount int
	CreatedAt    time.Time
}

type ArticleRepository interface {
	Insert(ctx context.Context, article *Article) (err error)
	Find(ctx context.Context, articleID string) (article *Article, err error)
	List(ctx context.Context, params ListArticlesParams) (articles []*Article, err error)
	Exists(ctx context.Context, articleID string) (exists bool, err error)
	// AdjustCommentCount applies delta atomically and never lets the stored
	// count drop below zero.
	AdjustCommentCount(ctx context.Context, articleID string, delta int) (count int, err error)
}

type ListArticlesParams struct {
	Limit  int
	Offset int
}

type ArticleNotFoundError struct {
	ID string
}

func (err ArticleNotFoundError) Error() string {
	return fmt.Sprintf("article with id %q not found", err.ID)
}

type InvalidArticleError struct {
	Field   string
	Message string
}

func (err InvalidArticleError) Error() string {
	return err.Field + ": " + err.Message
}
