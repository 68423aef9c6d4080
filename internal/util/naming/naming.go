package naming

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/imamik/stackctl/internal/util/labels"
)

const (
	// MaxNameLength is the longest stack name RID produces.
	MaxNameLength = 63

	// MaxLoadBalancerLength is the provider limit on load balancer names.
	MaxLoadBalancerLength = 32

	digestLength = 12
)

// ErrEmptyInput is returned when a required RID component is empty.
var ErrEmptyInput = errors.New("naming: project and environment must be non-empty")

// stackNamespace seeds idempotency tokens so they never collide with UUIDs
// produced by other tools.
var stackNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("stackctl.io"))

// RID returns the deterministic stack name for an environment.
//
// The result is "<project>-<env>[-<revision>]-<digest>", where the readable
// prefix is a lowercase slug truncated so the whole name fits in
// MaxNameLength, and digest is derived from the raw, unslugged tuple. The
// digest carries uniqueness; the prefix is only for humans.
func RID(projectID, envName, revision string) (string, error) {
	if projectID == "" || envName == "" {
		return "", ErrEmptyInput
	}

	digest := tupleDigest(projectID, envName, revision)

	parts := []string{Slug(projectID), Slug(envName)}
	if revision != "" {
		parts = append(parts, Slug(revision))
	}
	prefix := joinNonEmpty(parts)

	return withDigest(prefix, digest, MaxNameLength), nil
}

// LoadBalancer returns a load balancer name derived from a stack name that
// fits the provider's shorter limit.
func LoadBalancer(stackName string) string {
	if len(stackName) <= MaxLoadBalancerLength {
		return stackName
	}
	digest := tupleDigest(stackName)
	return withDigest(stackName[:len(stackName)-digestLength-1], digest, MaxLoadBalancerLength)
}

// DeploymentSubdomain returns the DNS label for a branch deployment. The
// master and main branches map to the bare project name.
func DeploymentSubdomain(projectID, branch string) string {
	if branch == "master" || branch == "main" {
		return Slug(projectID)
	}
	return fmt.Sprintf("%s-%s", Slug(branch), Slug(projectID))
}

// PRSubdomain returns the DNS label for a pull request environment.
func PRSubdomain(projectID, number string) string {
	return fmt.Sprintf("pr-%s-%s", Slug(number), Slug(projectID))
}

// ClientToken returns a deterministic idempotency token for a mutation
// scoped to a stack. Retrying the same mutation reuses the same token.
func ClientToken(stackName, scope string) string {
	return uuid.NewSHA1(stackNamespace, []byte(stackName+"/"+scope)).String()
}

// Slug lowercases s and replaces every run of characters outside
// [a-z0-9] with a single hyphen.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// tupleDigest hashes length-prefixed components so that ("a-b", "c") and
// ("a", "b-c") never share a digest.
func tupleDigest(components ...string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, c := range components {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(c)))
		h.Write(lenBuf[:])
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))[:digestLength]
}

func withDigest(prefix, digest string, maxLen int) string {
	room := maxLen - len(digest) - 1
	if len(prefix) > room {
		prefix = strings.TrimRight(prefix[:room], "-")
	}
	if prefix == "" {
		return digest
	}
	return prefix + "-" + digest
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "-")
}

// Matches reports whether a resource's tags mark it as part of stackName.
// It is the inverse of the tagging applied at creation and drives discovery.
func Matches(tags map[string]string, stackName string) bool {
	return labels.Matches(tags, labels.ForStack(stackName))
}
