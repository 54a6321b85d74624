package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

func trimPrefix(prefix string) string {
	return strings.TrimRight(prefix, "/")
}

func itemsPrefix(prefix string) string {
	return trimPrefix(prefix) + "/items/"
}

func itemKey(prefix, name string) string {
	return itemsPrefix(prefix) + url.PathEscape(name)
}

func jobKeyBase(prefix, jobName string) string {
	return fmt.Sprintf("%s/jobs/%s", trimPrefix(prefix), url.PathEscape(jobName))
}

func runsPrefix(prefix, jobName string) string {
	return jobKeyBase(prefix, jobName) + "/runs/"
}

// Run numbers are zero padded so a prefix scan returns runs in order.
func runKey(prefix, jobName string, number int64) string {
	return fmt.Sprintf("%s%010d", runsPrefix(prefix, jobName), number)
}

func indexKey(prefix, jobName string, runType domain.RunType, dockerID string) string {
	return fmt.Sprintf("%s/index/%s/%s", jobKeyBase(prefix, jobName), runType, url.PathEscape(dockerID))
}

func counterKey(prefix, jobName string) string {
	return jobKeyBase(prefix, jobName) + "/counter"
}

func lockKey(prefix, jobName string) string {
	return fmt.Sprintf("%s/locks/%s", trimPrefix(prefix), url.PathEscape(jobName))
}

func numberFromRunKey(prefix, jobName, key string) (int64, error) {
	suffix := strings.TrimPrefix(key, runsPrefix(prefix, jobName))
	if suffix == key {
		return 0, fmt.Errorf("key %s is not a run of job %s", key, jobName)
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse run number from %s: %w", key, err)
	}
	return n, nil
}
