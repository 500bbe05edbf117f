package service

import "strconv"

// splitErrorCode parses the "NNNNN:message" convention used by service
// errors. Unknown shapes map to 50001.
func splitErrorCode(err error) (int, string) {
	msg := err.Error()
	if len(msg) > 5 && msg[5] == ':' {
		code, e := strconv.Atoi(msg[:5])
		if e == nil {
			return code, msg[6:]
		}
	}
	return 50001, msg
}
