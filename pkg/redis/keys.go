package redis

import "strings"

// Keyspace builds colon separated keys under one application prefix. Blank
// segments are dropped so optional parts never produce "::".
type Keyspace string

const DefaultKeyspace Keyspace = "amb"

func (k Keyspace) Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (k Keyspace) Idempotency(scope, id string) string { return k.Key("idempotency", scope, id) }
func (k Keyspace) Lock(name string) string             { return k.Key("lock", name) }
func (k Keyspace) Marker(scope, id string) string      { return k.Key("reminder", scope, id) }
func (k Keyspace) Request(userID, key string) string   { return k.Key("request", userID, key) }
