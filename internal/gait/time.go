package gait

import "time"

// nowISO stamps reflog entries with the same second-resolution, UTC,
// timezone-free format the schema package uses for created_at.
func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05")
}

// processStart is the cutoff Init/Open use when sweeping stale ".lock"
// and ".tmp-*" files: anything older than this process's own start
// time was left behind by some earlier, now-dead process and is safe
// to clear.
var processStart = time.Now()
