// Package redis is a skills.Source backed by Redis hashes for metadata
// and a plain key for each skill's body, grounded on the teacher's
// direct dependency on go-redis and its metadata-store-plus-detail-fetch
// feature shape.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"goa.design/skillsruntime/skills"
)

// Source scans a Redis set of skill keys under the given namespace.
type Source struct {
	Client    *redis.Client
	Namespace string
}

func indexKey(namespace string) string { return "skills:" + namespace + ":index" }
func metaKey(namespace, name string) string { return "skills:" + namespace + ":meta:" + name }
func bodyKey(namespace, name string) string { return "skills:" + namespace + ":body:" + name }

// Scan reads the namespace's index set and fetches each member's metadata
// hash.
func (s *Source) Scan(ctx context.Context) ([]skills.Metadata, error) {
	names, err := s.Client.SMembers(ctx, indexKey(s.Namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: scan index: %w", err)
	}

	out := make([]skills.Metadata, 0, len(names))
	for _, name := range names {
		fields, err := s.Client.HGetAll(ctx, metaKey(s.Namespace, name)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: read metadata %s: %w", name, err)
		}
		bodyBytes, _ := strconv.Atoi(fields["body_bytes"])
		out = append(out, skills.Metadata{
			Namespace:   s.Namespace,
			Name:        name,
			Description: fields["description"],
			BodyBytes:   bodyBytes,
		})
	}
	return out, nil
}

// LoadBody fetches the skill's body key.
func (s *Source) LoadBody(ctx context.Context, namespace, name string) (string, error) {
	body, err := s.Client.Get(ctx, bodyKey(namespace, name)).Result()
	if err != nil {
		return "", fmt.Errorf("redis: load body %s/%s: %w", namespace, name, err)
	}
	return body, nil
}
