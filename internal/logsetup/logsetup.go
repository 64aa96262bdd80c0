// Package logsetup configures the standard logger for all usblrb
// commands. Import it for side effects only.
package logsetup

import "log"

func init() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
}
