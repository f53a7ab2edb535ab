// Package timezone pins the timezone the French sources render dates in.
// Parsing their day-first dates in the server's own local zone would shift
// them by a day whenever the process runs in another region.
package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}
