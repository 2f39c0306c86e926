package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/ayusman/signassess/internal/session"
)

const createSessionsTable = `CREATE TABLE IF NOT EXISTS sessions (
	user_id text,
	created_at timestamp,
	id text,
	username text,
	top_signs text,
	seconds_spent double,
	score int,
	questions int,
	PRIMARY KEY ((user_id), created_at, id)
) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`

// CassandraSink writes one row per session into a Cassandra keyspace.
type CassandraSink struct {
	session *gocql.Session
}

// ConnectCassandra connects to the cluster and creates the sessions table
// if it is missing. The keyspace must already exist.
func ConnectCassandra(hosts []string, keyspace string) (*CassandraSink, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	s, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	if err := s.Query(createSessionsTable).Exec(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &CassandraSink{session: s}, nil
}

// Save inserts the record. Top signs are stored as a JSON array.
func (c *CassandraSink) Save(ctx context.Context, rec *session.Record) error {
	signs, err := json.Marshal(rec.TopSigns)
	if err != nil {
		return fmt.Errorf("failed to marshal top signs: %w", err)
	}

	err = c.session.Query(
		`INSERT INTO sessions (user_id, created_at, id, username, top_signs, seconds_spent, score, questions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.CreatedAt, rec.ID, rec.Username, string(signs), rec.SecondsSpent, rec.Score, rec.Questions,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", rec.ID, err)
	}
	return nil
}

// ListByUser returns a user's records, newest first.
func (c *CassandraSink) ListByUser(ctx context.Context, userID string) ([]*session.Record, error) {
	iter := c.session.Query(
		`SELECT id, user_id, username, top_signs, created_at, seconds_spent, score, questions
		 FROM sessions WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	var records []*session.Record
	var signs string
	rec := &session.Record{}
	for iter.Scan(&rec.ID, &rec.UserID, &rec.Username, &signs, &rec.CreatedAt, &rec.SecondsSpent, &rec.Score, &rec.Questions) {
		if err := json.Unmarshal([]byte(signs), &rec.TopSigns); err != nil {
			iter.Close()
			return nil, fmt.Errorf("invalid top signs for session %s: %w", rec.ID, err)
		}
		records = append(records, rec)
		rec = &session.Record{}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error fetching sessions: %w", err)
	}
	return records, nil
}

// Close closes the Cassandra session.
func (c *CassandraSink) Close() {
	c.session.Close()
}
