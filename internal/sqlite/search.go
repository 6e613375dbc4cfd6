package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/confsched/internal/metrics"
)

const (
	clearSearchIndex = `DELETE FROM sessions_search`

	// Each body is "title; abstract; keywords; speaker names; " with missing
	// parts left empty.
	fillSearchIndex = `INSERT INTO sessions_search (session_id, body)
SELECT sessions.session_id,
    IFNULL(sessions.session_title, '') || '; ' ||
    IFNULL(sessions.session_abstract, '') || '; ' ||
    IFNULL(sessions.session_keywords, '') || '; ' ||
    IFNULL(GROUP_CONCAT(linked.speaker_name, ' '), '') || '; '
FROM sessions
LEFT OUTER JOIN (
    SELECT sessions_speakers.session_id AS session_id, speakers.speaker_name AS speaker_name
    FROM sessions_speakers
    INNER JOIN speakers ON ` + onSessionsSpeakersSpkr + `
) AS linked ON linked.session_id = sessions.session_id
GROUP BY sessions.session_id`
)

// RebuildSearchIndex replaces the session full-text index with one built
// from the current sessions and their speakers.
func (b *Backend) RebuildSearchIndex(ctx context.Context) error {
	db, release, err := b.writer()
	if err != nil {
		return err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	return inTx(ctx, db, func(tx *sql.Tx) error {
		return rebuildSearchIndex(ctx, tx)
	})
}

func rebuildSearchIndex(ctx context.Context, e execer) error {
	if _, err := e.ExecContext(ctx, clearSearchIndex); err != nil {
		return fmt.Errorf("clearing search index: %w", err)
	}
	if _, err := e.ExecContext(ctx, fillSearchIndex); err != nil {
		return fmt.Errorf("filling search index: %w", err)
	}
	metrics.RecordSearchIndexRebuild()
	return nil
}

// matchQuery turns free text into an FTS5 query. Each whitespace-separated
// term becomes a quoted string so punctuation is tokenized rather than read
// as query syntax.
func matchQuery(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return `""`
	}
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
