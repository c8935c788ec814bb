package notifier

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegrid/pulsegrid/pkg/incident"
)

// subjectInfo is the human-readable rendering of a notify intent's subject,
// resolved once per dispatch so providers don't each re-query it.
type subjectInfo struct {
	kind string
	name string
}

func resolveSubject(ctx context.Context, pool *pgxpool.Pool, subject incident.Subject) (subjectInfo, error) {
	if subject.HTTPTargetID != nil {
		var name string
		query := `SELECT name FROM http_targets WHERE id = $1`
		if err := pool.QueryRow(ctx, query, *subject.HTTPTargetID).Scan(&name); err != nil {
			return subjectInfo{}, fmt.Errorf("loading http target name: %w", err)
		}
		return subjectInfo{kind: "http_target", name: name}, nil
	}

	var hostname, metricName string
	query := `SELECT m.hostname, d.name FROM metric_instances mi
	JOIN machines m ON m.id = mi.machine_id
	JOIN metric_definitions d ON d.id = mi.definition_id
	WHERE mi.id = $1`
	if err := pool.QueryRow(ctx, query, *subject.MetricInstanceID).Scan(&hostname, &metricName); err != nil {
		return subjectInfo{}, fmt.Errorf("loading metric instance name: %w", err)
	}
	return subjectInfo{kind: "metric_instance", name: hostname + "/" + metricName}, nil
}

// recipient is one configured destination for a client: a provider name
// paired with its address (Slack webhook URL or email address).
type recipient struct {
	provider string
	address  string
}
