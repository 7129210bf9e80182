// cache/sqlite.go
package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
)

// SQLiteStore implements Store using an SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debugf("Instance store initialized: %s", dbPath)
	return store, nil
}

// initSchema creates the inventory tables if they don't exist. Child rows
// are keyed by (target, instance_id) because ids are only unique per cloud.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS instances (
		target TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		region TEXT NOT NULL,
		discovered_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (target, instance_id)
	);

	CREATE TABLE IF NOT EXISTS network_interfaces (
		target TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		nif TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS private_ips (
		target TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		ip TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS public_ips (
		target TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		ip TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tags (
		target TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		tag_key TEXT NOT NULL,
		tag_value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_instances_target ON instances(target);
	CREATE INDEX IF NOT EXISTS idx_nif_instance ON network_interfaces(target, instance_id);
	CREATE INDEX IF NOT EXISTS idx_private_ips_instance ON private_ips(target, instance_id);
	CREATE INDEX IF NOT EXISTS idx_public_ips_instance ON public_ips(target, instance_id);
	CREATE INDEX IF NOT EXISTS idx_tags_instance ON tags(target, instance_id);
	CREATE INDEX IF NOT EXISTS idx_tags_pair ON tags(tag_key, tag_value);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

var childTables = []string{"network_interfaces", "private_ips", "public_ips", "tags"}

// SaveInstances upserts each instance and replaces its child rows in a
// single transaction, so re-discovery never duplicates IPs or tags.
func (s *SQLiteStore) SaveInstances(instances []fetcher.Instance) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, inst := range instances {
		if err := saveInstance(tx, inst); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit instances: %w", err)
	}
	log.Debugf("Saved %d instances to storage", len(instances))
	return nil
}

func saveInstance(tx *sql.Tx, inst fetcher.Instance) error {
	target := string(inst.Target)
	_, err := tx.Exec(`
	INSERT INTO instances (target, instance_id, account_id, region, discovered_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(target, instance_id) DO UPDATE SET
		account_id = excluded.account_id,
		region = excluded.region,
		discovered_at = excluded.discovered_at
	`, target, inst.InstanceID, inst.AccountID, inst.Region, unixNanos(inst.DiscoveredAt))
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", inst.InstanceID, err)
	}

	for _, table := range childTables {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE target = ? AND instance_id = ?", target, inst.InstanceID); err != nil {
			return fmt.Errorf("failed to clear %s for instance %s: %w", table, inst.InstanceID, err)
		}
	}

	insert := func(table, column string, values []string) error {
		for i, v := range values {
			query := "INSERT INTO " + table + " (target, instance_id, position, " + column + ") VALUES (?, ?, ?, ?)"
			if _, err := tx.Exec(query, target, inst.InstanceID, i, v); err != nil {
				return fmt.Errorf("failed to save %s for instance %s: %w", table, inst.InstanceID, err)
			}
		}
		return nil
	}
	if err := insert("network_interfaces", "nif", inst.NetworkInterfaceIDs); err != nil {
		return err
	}
	if err := insert("private_ips", "ip", inst.PrivateIPs); err != nil {
		return err
	}
	if err := insert("public_ips", "ip", inst.PublicIPs); err != nil {
		return err
	}
	for i, tag := range inst.Tags {
		_, err := tx.Exec(`INSERT INTO tags (target, instance_id, position, tag_key, tag_value) VALUES (?, ?, ?, ?, ?)`,
			target, inst.InstanceID, i, tag.Key, tag.Value)
		if err != nil {
			return fmt.Errorf("failed to save tags for instance %s: %w", inst.InstanceID, err)
		}
	}
	return nil
}

type instanceKey struct {
	target string
	id     string
}

// FetchInstances loads the instances of target ordered by region and id.
func (s *SQLiteStore) FetchInstances(target policy.Target) ([]fetcher.Instance, error) {
	filter, args := "", []interface{}{}
	if target != "" {
		filter, args = " WHERE target = ?", []interface{}{string(target)}
	}

	rows, err := s.db.Query(`
	SELECT target, instance_id, account_id, region, discovered_at
	FROM instances`+filter+`
	ORDER BY target ASC, region ASC, instance_id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var instances []fetcher.Instance
	index := map[instanceKey]int{}
	for rows.Next() {
		var inst fetcher.Instance
		var t string
		var nanos int64
		if err := rows.Scan(&t, &inst.InstanceID, &inst.AccountID, &inst.Region, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		inst.Target = policy.Target(t)
		inst.DiscoveredAt = fromUnixNanos(nanos)
		inst.PrivateIPs = []string{}
		inst.Tags = []policy.Tag{}
		index[instanceKey{t, inst.InstanceID}] = len(instances)
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	attach := func(table, column string, apply func(inst *fetcher.Instance, v string)) error {
		rows, err := s.db.Query("SELECT target, instance_id, "+column+" FROM "+table+filter+" ORDER BY position ASC", args...)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		defer rows.Close()
		for rows.Next() {
			var t, id, v string
			if err := rows.Scan(&t, &id, &v); err != nil {
				return fmt.Errorf("failed to scan %s: %w", table, err)
			}
			if i, ok := index[instanceKey{t, id}]; ok {
				apply(&instances[i], v)
			}
		}
		return rows.Err()
	}

	if err := attach("network_interfaces", "nif", func(inst *fetcher.Instance, v string) {
		inst.NetworkInterfaceIDs = append(inst.NetworkInterfaceIDs, v)
	}); err != nil {
		return nil, err
	}
	if err := attach("private_ips", "ip", func(inst *fetcher.Instance, v string) {
		inst.PrivateIPs = append(inst.PrivateIPs, v)
	}); err != nil {
		return nil, err
	}
	if err := attach("public_ips", "ip", func(inst *fetcher.Instance, v string) {
		inst.PublicIPs = append(inst.PublicIPs, v)
	}); err != nil {
		return nil, err
	}
	if err := s.attachTags(filter, args, index, instances); err != nil {
		return nil, err
	}

	log.Debugf("Loaded %d instances from storage", len(instances))
	return instances, nil
}

func (s *SQLiteStore) attachTags(filter string, args []interface{}, index map[instanceKey]int, instances []fetcher.Instance) error {
	rows, err := s.db.Query("SELECT target, instance_id, tag_key, tag_value FROM tags"+filter+" ORDER BY position ASC", args...)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t, id string
		var tag policy.Tag
		if err := rows.Scan(&t, &id, &tag.Key, &tag.Value); err != nil {
			return fmt.Errorf("failed to scan tags: %w", err)
		}
		if i, ok := index[instanceKey{t, id}]; ok {
			instances[i].Tags = append(instances[i].Tags, tag)
		}
	}
	return rows.Err()
}

// Count returns the number of stored instances.
func (s *SQLiteStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM instances`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get instance count: %w", err)
	}
	return count, nil
}

// Clear removes every instance and its child rows.
func (s *SQLiteStore) Clear() error {
	for _, table := range append([]string{"instances"}, childTables...) {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Info("All instances cleared from storage")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
