// Package userdb loads the flat-file credential directory used to
// authenticate logins. It is intentionally simple: one whitespace
// delimited record per line, no hashing, no external store — anything
// richer than file-backed lookup is out of scope for this server.
package userdb

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type record struct {
	password string
	level    int
}

// DB is an in-memory, read-only view of the users file.
type DB struct {
	users map[string]record
}

// Load reads path and parses it into a DB. It fails loudly: a missing
// file, or any line that isn't a blank line, a '#' comment, or exactly
// "login password level", is a fatal error — there is no silent
// best-effort mode.
func Load(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("userdb: users file not found: %w", err)
	}
	defer f.Close()

	users := make(map[string]record)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("userdb: bad users file at line %d: %q", lineNo, line)
		}
		level, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("userdb: bad users file at line %d: %q", lineNo, line)
		}
		users[fields[0]] = record{password: fields[1], level: level}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("userdb: reading users file: %w", err)
	}
	return &DB{users: users}, nil
}

// Authenticate reports whether login/password is valid and grants at
// least the requested role level.
func (db *DB) Authenticate(login, password string, role int) bool {
	rec, ok := db.users[login]
	if !ok {
		return false
	}
	return rec.password == password && rec.level >= role
}
