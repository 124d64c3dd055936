package discuss

import (
	"context"
	"errors"
	"fmt"

	"github.com/dailytribune/tribune/reactions"
)

// ReactionTargets resolves reaction targets against articles and live
// comments. Deleted comments no longer accept reactions.
func ReactionTargets(repo CommentRepository, articles ArticleChecker) reactions.TargetResolver {
	return reactions.TargetResolverFunc(func(ctx context.Context, target reactions.Target) (bool, error) {
		switch target.Type {
		case reactions.TargetTypeArticle:
			return articles.Exists(ctx, target.ID)
		case reactions.TargetTypeComment:
			comment, err := repo.Find(ctx, target.ID)
			if err != nil {
				var notFoundErr NotFoundError
				if errors.As(err, &notFoundErr) {
					return false, nil
				}

				return false, fmt.Errorf("failed to find comment: %w", err)
			}

			return !comment.IsDeleted(), nil
		default:
			return false, nil
		}
	})
}
