package contents

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const ServiceName = "github.com/dailytribune/tribune/contents"

const (
	ActionCreateArticle = "createArticle"
	ActionReadArticles  = "readArticles"
)

const maxTitleLength = 200

type Service struct {
	articleRepo ArticleRepository
}

func NewService(articleRepo ArticleRepository) *Service {
	return &Service{articleRepo: articleRepo}
}

type CreateArticleRequest struct {
	AuthorID string
	Title    string
	Body     string
}

func (svc *Service) CreateArticle(ctx context.Context, req CreateArticleRequest) (*Article, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, InvalidArticleError{
			Field:   "title",
			Message: fmt.Sprintf("must be between 1 and %d characters", maxTitleLength),
		}
	}

	if strings.TrimSpace(req.Body) == "" {
		return nil, InvalidArticleError{Field: "body", Message: "must not be empty"}
	}

	article := &Article{
		ID:        uuid.NewString(),
		AuthorID:  req.AuthorID,
		Title:     title,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}

	err := svc.articleRepo.Insert(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return article, nil
}

func (svc *Service) GetArticle(ctx context.Context, articleID string) (*Article, error) {
	article, err := svc.articleRepo.Find(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return article, nil
}

func (svc *Service) ListArticles(ctx context.Context, limit, offset int) ([]*Article, error) {
	articles, err := svc.articleRepo.List(ctx, ListArticlesParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return articles, nil
}

func (svc *Service) Exists(ctx context.Context, articleID string) (bool, error) {
	exists, err := svc.articleRepo.Exists(ctx, articleID)
	if err != nil {
		return false, fmt.Errorf("failed to check article: %w", err)
	}

	return exists, nil
}

func (svc *Service) AdjustCommentCount(ctx context.Context, articleID string, delta int) (int, error) {
	count, err := svc.articleRepo.AdjustCommentCount(ctx, articleID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust comment count: %w", err)
	}

	return count, nil
}
