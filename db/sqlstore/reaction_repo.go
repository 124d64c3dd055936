package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dailytribune/tribune/reactions"
)

const tableReactions = "reactions"

// toggleAttempts bounds retries when a concurrent toggle inserts the same
// (target, user) row first.
const toggleAttempts = 3

type ReactionRepository struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

var _ reactions.ReactionRepository = (*ReactionRepository)(nil)

func NewReactionRepository(db *sql.DB, driver Driver) *ReactionRepository {
	return &ReactionRepository{db: db, sq: driver.builder()}
}

const (
	reactionFieldID         = "id"
	reactionFieldTargetType = "target_type"
	reactionFieldTargetID   = "target_id"
	reactionFieldUserID     = "user_id"
	reactionFieldKind       = "kind"
	reactionFieldCreatedAt  = "created_at"
)

func reactionColumns() []string {
	return []string{
		reactionFieldID,
		reactionFieldTargetType,
		reactionFieldTargetID,
		reactionFieldUserID,
		reactionFieldKind,
		reactionFieldCreatedAt,
	}
}

func scanReaction(row sq.RowScanner) (*reactions.Reaction, error) {
	var reaction reactions.Reaction

	err := row.Scan(
		&reaction.ID,
		&reaction.Target.Type,
		&reaction.Target.ID,
		&reaction.UserID,
		&reaction.Kind,
		&reaction.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reaction row: %w", err)
	}

	return &reaction, nil
}

func userTarget(target reactions.Target, userID string) sq.Eq {
	return sq.Eq{
		reactionFieldTargetType: target.Type,
		reactionFieldTargetID:   target.ID,
		reactionFieldUserID:     userID,
	}
}

func (repo *ReactionRepository) FindByUserTarget(
	ctx context.Context,
	target reactions.Target,
	userID string,
) (*reactions.Reaction, error) {
	q := repo.sq.Select(reactionColumns()...).
		From(tableReactions).
		Where(userTarget(target, userID)).
		RunWith(repo.db)

	reaction, err := scanReaction(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reactions.ReactionNotFoundError{Target: target, UserID: userID}
		}

		return nil, fmt.Errorf("failed to find reaction by user target: %w", err)
	}

	return reaction, nil
}

// Toggle removes a reaction of the same kind, switches one of another kind,
// or inserts a new one. The unique (target, user) constraint resolves
// concurrent inserts: the loser retries and sees the winner's row.
func (repo *ReactionRepository) Toggle(
	ctx context.Context,
	reaction *reactions.Reaction,
) (reactions.ToggleAction, error) {
	for range toggleAttempts {
		var action reactions.ToggleAction

		err := withTx(ctx, repo.db, func(tx *sql.Tx) error {
			var err error

			action, err = repo.toggleOnce(ctx, tx, reaction)

			return err
		})
		if err != nil {
			return "", err
		}

		if action != "" {
			return action, nil
		}
	}

	return "", fmt.Errorf("failed to toggle reaction after %d attempts", toggleAttempts)
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}

// toggleOnce returns an empty action when a concurrent insert won the race.
func (repo *ReactionRepository) toggleOnce(
	ctx context.Context,
	tx *sql.Tx,
	reaction *reactions.Reaction,
) (reactions.ToggleAction, error) {
	match := userTarget(reaction.Target, reaction.UserID)

	result, err := repo.sq.Delete(tableReactions).
		Where(match).
		Where(sq.Eq{reactionFieldKind: reaction.Kind}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to delete reaction: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return "", err
	}

	if n > 0 {
		return reactions.ToggleRemoved, nil
	}

	result, err = repo.sq.Update(tableReactions).
		Set(reactionFieldKind, reaction.Kind).
		Where(match).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to update reaction: %w", err)
	}

	n, err = rowsAffected(result)
	if err != nil {
		return "", err
	}

	if n > 0 {
		return reactions.ToggleChanged, nil
	}

	result, err = repo.sq.Insert(tableReactions).
		Columns(reactionColumns()...).
		Values(
			reaction.ID,
			reaction.Target.Type,
			reaction.Target.ID,
			reaction.UserID,
			reaction.Kind,
			reaction.CreatedAt,
		).
		Suffix("ON CONFLICT (" +
			reactionFieldTargetType + ", " + reactionFieldTargetID + ", " + reactionFieldUserID +
			") DO NOTHING").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert reaction: %w", err)
	}

	n, err = rowsAffected(result)
	if err != nil {
		return "", err
	}

	if n == 0 {
		return "", nil
	}

	return reactions.ToggleAdded, nil
}

func (repo *ReactionRepository) CountByTarget(
	ctx context.Context,
	target reactions.Target,
) (map[reactions.Kind]int, error) {
	q := repo.sq.Select(reactionFieldKind, "COUNT(*)").
		From(tableReactions).
		Where(sq.Eq{
			reactionFieldTargetType: target.Type,
			reactionFieldTargetID:   target.ID,
		}).
		GroupBy(reactionFieldKind).
		RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query reaction counts: %w", err)
	}

	defer closeRows(ctx, rows)

	counts := make(map[reactions.Kind]int)

	for rows.Next() {
		var kind reactions.Kind

		var count int

		err := rows.Scan(&kind, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reaction count row: %w", err)
		}

		counts[kind] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate reaction count rows: %w", err)
	}

	return counts, nil
}
