package common

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
)

func node() *snowflake.Node {
	snowflakeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		snowflakeNode = n
	})
	return snowflakeNode
}

// UUIDint64 returns a time ordered unique int64 id.
func UUIDint64() int64 {
	return node().Generate().Int64()
}

// InvoiceNumber returns a unique invoice identifier derived from the current timestamp.
// Snowflake ids carry the millisecond timestamp plus a per-millisecond sequence, so two
// sales generated in the same millisecond still get distinct numbers.
func InvoiceNumber() string {
	return fmt.Sprintf("INV-%d", node().Generate().Int64())
}

// HashPassword bcrypt hashes a clear text password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func IsNotEmpty(s string) bool {
	return !IsEmpty(s)
}

// If returns a when cond holds, b otherwise.
func If[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
