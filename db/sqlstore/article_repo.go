package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dailytribune/tribune/contents"
)

const tableArticles = "articles"

type ArticleRepository struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

var _ contents.ArticleRepository = (*ArticleRepository)(nil)

func NewArticleRepository(db *sql.DB, driver Driver) *ArticleRepository {
	return &ArticleRepository{db: db, sq: driver.builder()}
}

const (
	articleFieldID           = "id"
	articleFieldAuthorID     = "author_id"
	articleFieldTitle        = "title"
	articleFieldBody         = "body"
	articleFieldCommentCount = "comment_count"
	articleFieldCreatedAt    = "created_at"
)

func articleColumns() []string {
	return []string{
		articleFieldID,
		articleFieldAuthorID,
		articleFieldTitle,
		articleFieldBody,
		articleFieldCommentCount,
		articleFieldCreatedAt,
	}
}

func scanArticle(row sq.RowScanner) (*contents.Article, error) {
	var article contents.Article

	err := row.Scan(
		&article.ID,
		&article.AuthorID,
		&article.Title,
		&article.Body,
		&article.CommentCount,
		&article.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &article, nil
}

func (repo *ArticleRepository) Insert(ctx context.Context, article *contents.Article) error {
	q := repo.sq.Insert(tableArticles).
		Columns(articleColumns()...).
		Values(
			article.ID,
			article.AuthorID,
			article.Title,
			article.Body,
			article.CommentCount,
			article.CreatedAt,
		).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *ArticleRepository) Find(ctx context.Context, articleID string) (*contents.Article, error) {
	q := repo.sq.Select(articleColumns()...).
		From(tableArticles).
		Where(sq.Eq{articleFieldID: articleID}).
		RunWith(repo.db)

	article, err := scanArticle(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contents.ArticleNotFoundError{ID: articleID}
		}

		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return article, nil
}

func (repo *ArticleRepository) List(
	ctx context.Context,
	params contents.ListArticlesParams,
) ([]*contents.Article, error) {
	q := repo.sq.Select(articleColumns()...).
		From(tableArticles).
		OrderBy(articleFieldCreatedAt+" DESC", articleFieldID+" DESC")

	if params.Limit > 0 {
		q = q.Limit(uint64(params.Limit))
	}

	if params.Offset > 0 {
		q = q.Offset(uint64(params.Offset))
	}

	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer closeRows(ctx, rows)

	articles := make([]*contents.Article, 0)

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article failed: %w", err)
		}

		articles = append(articles, article)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return articles, nil
}

func (repo *ArticleRepository) Exists(ctx context.Context, articleID string) (bool, error) {
	var one int

	err := repo.sq.Select("1").
		From(tableArticles).
		Where(sq.Eq{articleFieldID: articleID}).
		Limit(1).
		RunWith(repo.db).
		QueryRowContext(ctx).
		Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check article: %w", err)
	}

	return true, nil
}

func (repo *ArticleRepository) AdjustCommentCount(ctx context.Context, articleID string, delta int) (int, error) {
	count, err := adjustCommentCount(ctx, repo.sq, repo.db, articleID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, contents.ArticleNotFoundError{ID: articleID}
		}

		return 0, err
	}

	return count, nil
}

// adjustCommentCount applies delta in a single statement, flooring the count
// at zero. It returns sql.ErrNoRows when the article does not exist.
func adjustCommentCount(
	ctx context.Context,
	builder sq.StatementBuilderType,
	runner sq.BaseRunner,
	articleID string,
	delta int,
) (int, error) {
	var count int

	err := builder.Update(tableArticles).
		Set(articleFieldCommentCount, sq.Expr(
			"CASE WHEN "+articleFieldCommentCount+" + ? < 0 THEN 0 ELSE "+articleFieldCommentCount+" + ? END",
			delta, delta,
		)).
		Where(sq.Eq{articleFieldID: articleID}).
		Suffix("RETURNING " + articleFieldCommentCount).
		RunWith(runner).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}

		return 0, fmt.Errorf("failed to adjust comment count: %w", err)
	}

	return count, nil
}
