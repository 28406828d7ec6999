package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/core"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

// BeQuietError signals that the error was already reported to the user.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "command failed"
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Str("correlation_id", correlation).Msgf("%s %s", redCross, msg)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	if kind := core.KindOf(err); kind != "" {
		log.Error().Msgf("code:  %s", kind)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf("%s %s", greenCheck, fmt.Sprintf(format, args...))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func printKV(key string, val any) {
	fmt.Printf("  %-26s %v\n", faint(key)+":", val)
}

func printMap(m map[string]any) {
	if len(m) == 0 {
		fmt.Printf("       %s\n", faint("(none)"))
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("       %-16s %v\n", faint(k)+":", m[k])
	}
}

func unixTime(sec int64) string {
	return time.Unix(sec, 0).Local().Format(time.RFC1123)
}

func printDecoded(shortName string, t *core.DecodedToken) {
	fmt.Println(bold("\n── Verified " + shortName + " ──"))
	printKV("UID", bold(t.UID))
	printKV("Issuer", t.Issuer)
	printKV("Audience", t.Audience)
	printKV("Issued At", unixTime(t.IssuedAt))
	printKV("Expires", unixTime(t.Expires))
	if t.AuthTime != 0 {
		printKV("Auth Time", unixTime(t.AuthTime))
	}
	if t.Firebase.SignInProvider != "" {
		printKV("Sign-In Provider", t.Firebase.SignInProvider)
	}
	if tenant := t.TenantID(); tenant != "" {
		printKV("Tenant", tenant)
	}
	printKV("Claims", "")
	printMap(t.Claims)
	fmt.Println()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
