package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dailytribune/tribune/discuss"
)

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB, driver Driver) *CommentRepository {
	return &CommentRepository{db: db, sq: driver.builder()}
}

const (
	commentFieldID               = "id"
	commentFieldArticleID        = "article_id"
	commentFieldAuthorID         = "author_id"
	commentFieldParentID         = "parent_id"
	commentFieldContent          = "content"
	commentFieldStatus           = "status"
	commentFieldFlagReason       = "flag_reason"
	commentFieldFlagReporterID   = "flag_reporter_id"
	commentFieldFlaggedAt        = "flagged_at"
	commentFieldModeratedBy      = "moderated_by"
	commentFieldModeratedAt      = "moderated_at"
	commentFieldModerationReason = "moderation_reason"
	commentFieldCreatedAt        = "created_at"
	commentFieldUpdatedAt        = "updated_at"
	commentFieldEditedAt         = "edited_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldArticleID,
		commentFieldAuthorID,
		commentFieldParentID,
		commentFieldContent,
		commentFieldStatus,
		commentFieldFlagReason,
		commentFieldFlagReporterID,
		commentFieldFlaggedAt,
		commentFieldModeratedBy,
		commentFieldModeratedAt,
		commentFieldModerationReason,
		commentFieldCreatedAt,
		commentFieldUpdatedAt,
		commentFieldEditedAt,
	}
}

var deletedStatuses = []string{
	string(discuss.StatusDeletedByAuthor),
	string(discuss.StatusDeletedByModerator),
}

var approvedStatuses = []string{
	string(discuss.StatusActive),
	string(discuss.StatusEdited),
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var (
		comment        discuss.Comment
		parentID       sql.NullString
		flagReason     sql.NullString
		flagReporterID sql.NullString
		flaggedAt      sql.NullTime
		moderatedBy    sql.NullString
		moderatedAt    sql.NullTime
		editedAt       sql.NullTime
	)

	err := row.Scan(
		&comment.ID,
		&comment.ArticleID,
		&comment.AuthorID,
		&parentID,
		&comment.Content,
		&comment.Status,
		&flagReason,
		&flagReporterID,
		&flaggedAt,
		&moderatedBy,
		&moderatedAt,
		&comment.ModerationReason,
		&comment.CreatedAt,
		&comment.UpdatedAt,
		&editedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if parentID.Valid {
		comment.ParentID = &parentID.String
	}

	if flaggedAt.Valid {
		comment.Flag = &discuss.Flag{
			Reason:     flagReason.String,
			ReporterID: flagReporterID.String,
			FlaggedAt:  flaggedAt.Time,
		}
	}

	if moderatedBy.Valid {
		comment.ModeratedBy = &moderatedBy.String
	}

	if moderatedAt.Valid {
		comment.ModeratedAt = &moderatedAt.Time
	}

	if editedAt.Valid {
		comment.EditedAt = &editedAt.Time
	}

	return &comment, nil
}

type flagValues struct {
	reason     any
	reporterID any
	flaggedAt  any
}

func flagColumns(flag *discuss.Flag) flagValues {
	if flag == nil {
		return flagValues{}
	}

	return flagValues{
		reason:     flag.Reason,
		reporterID: flag.ReporterID,
		flaggedAt:  flag.FlaggedAt,
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}

// Insert stores the comment and bumps the article's comment count in one
// transaction.
func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	flag := flagColumns(comment.Flag)

	return withTx(ctx, repo.db, func(tx *sql.Tx) error {
		_, err := adjustCommentCount(ctx, repo.sq, tx, comment.ArticleID, 1)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return discuss.NotFoundError{Resource: discuss.ResourceArticle, ID: comment.ArticleID}
			}

			return err
		}

		_, err = repo.sq.Insert(tableComments).
			Columns(commentColumns()...).
			Values(
				comment.ID,
				comment.ArticleID,
				comment.AuthorID,
				nullableString(comment.ParentID),
				comment.Content,
				comment.Status,
				flag.reason,
				flag.reporterID,
				flag.flaggedAt,
				nullableString(comment.ModeratedBy),
				nullableTime(comment.ModeratedAt),
				comment.ModerationReason,
				comment.CreatedAt,
				comment.UpdatedAt,
				nullableTime(comment.EditedAt),
			).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to exec insert: %w", err)
		}

		return nil
	})
}

func (repo *CommentRepository) Find(ctx context.Context, id string) (*discuss.Comment, error) {
	q := repo.sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: id}).
		RunWith(repo.db)

	comment, err := scanComment(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, discuss.NotFoundError{Resource: discuss.ResourceComment, ID: id}
		}

		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

func (repo *CommentRepository) Update(ctx context.Context, comment *discuss.Comment) error {
	flag := flagColumns(comment.Flag)

	result, err := repo.sq.Update(tableComments).
		SetMap(map[string]any{
			commentFieldContent:          comment.Content,
			commentFieldStatus:           comment.Status,
			commentFieldFlagReason:       flag.reason,
			commentFieldFlagReporterID:   flag.reporterID,
			commentFieldFlaggedAt:        flag.flaggedAt,
			commentFieldModeratedBy:      nullableString(comment.ModeratedBy),
			commentFieldModeratedAt:      nullableTime(comment.ModeratedAt),
			commentFieldModerationReason: comment.ModerationReason,
			commentFieldUpdatedAt:        comment.UpdatedAt,
			commentFieldEditedAt:         nullableTime(comment.EditedAt),
		}).
		Where(sq.Eq{commentFieldID: comment.ID}).
		Where(sq.NotEq{commentFieldStatus: deletedStatuses}).
		RunWith(repo.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return discuss.NotFoundError{Resource: discuss.ResourceComment, ID: comment.ID}
	}

	return nil
}

// SoftDelete tombstones the comment only while it is not deleted, so the
// article count is decremented at most once per comment.
func (repo *CommentRepository) SoftDelete(ctx context.Context, params discuss.SoftDeleteParams) (bool, error) {
	values := map[string]any{
		commentFieldStatus:    params.Status,
		commentFieldContent:   params.Tombstone,
		commentFieldUpdatedAt: params.At,
	}

	if params.ModeratedBy != nil {
		values[commentFieldModeratedBy] = *params.ModeratedBy
		values[commentFieldModeratedAt] = params.At
		values[commentFieldModerationReason] = params.Reason
	}

	deleted := false

	err := withTx(ctx, repo.db, func(tx *sql.Tx) error {
		var articleID string

		err := repo.sq.Update(tableComments).
			SetMap(values).
			Where(sq.Eq{commentFieldID: params.CommentID}).
			Where(sq.NotEq{commentFieldStatus: deletedStatuses}).
			Suffix("RETURNING " + commentFieldArticleID).
			RunWith(tx).
			QueryRowContext(ctx).
			Scan(&articleID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to tombstone comment: %w", err)
			}

			return repo.ensureExists(ctx, tx, params.CommentID)
		}

		_, err = adjustCommentCount(ctx, repo.sq, tx, articleID, -1)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		deleted = true

		return nil
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

func (repo *CommentRepository) ensureExists(ctx context.Context, runner sq.BaseRunner, id string) error {
	var one int

	err := repo.sq.Select("1").
		From(tableComments).
		Where(sq.Eq{commentFieldID: id}).
		RunWith(runner).
		QueryRowContext(ctx).
		Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return discuss.NotFoundError{Resource: discuss.ResourceComment, ID: id}
		}

		return fmt.Errorf("failed to check comment: %w", err)
	}

	return nil
}

func (repo *CommentRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*discuss.Comment, error) {
	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer closeRows(ctx, rows)

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment failed: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return comments, nil
}

func paginate(q sq.SelectBuilder, limit, offset int) sq.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	return q
}

func (repo *CommentRepository) ListTopLevel(
	ctx context.Context,
	params discuss.ListTopLevelParams,
) ([]*discuss.Comment, error) {
	statuses := approvedStatuses
	if params.IncludeHidden {
		statuses = slices.Concat(approvedStatuses, deletedStatuses, []string{string(discuss.StatusRejected)})
	}

	q := repo.sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{
			commentFieldArticleID: params.ArticleID,
			commentFieldParentID:  nil,
			commentFieldStatus:    statuses,
		}).
		OrderBy(commentFieldCreatedAt+" DESC", commentFieldID+" DESC")

	return repo.list(ctx, paginate(q, params.Limit, params.Offset))
}

func (repo *CommentRepository) ListReplies(ctx context.Context, parentIDs []string) ([]*discuss.Comment, error) {
	if len(parentIDs) == 0 {
		return []*discuss.Comment{}, nil
	}

	q := repo.sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldParentID: parentIDs}).
		OrderBy(commentFieldCreatedAt+" ASC", commentFieldID+" ASC")

	return repo.list(ctx, q)
}

func (repo *CommentRepository) ListFlagged(
	ctx context.Context,
	params discuss.ListFlaggedParams,
) ([]*discuss.Comment, error) {
	q := repo.sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.NotEq{commentFieldFlaggedAt: nil}).
		Where(sq.NotEq{commentFieldStatus: deletedStatuses}).
		OrderBy(commentFieldCreatedAt+" ASC", commentFieldID+" ASC")

	return repo.list(ctx, paginate(q, params.Limit, params.Offset))
}
