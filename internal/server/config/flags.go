package config

import (
	"flag"
	"os"
	"time"

	"github.com/commltd/authcore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   password hashing secret key
//	-f string   password policy file path
//	-t int      storage call timeout, seconds
//	-l int      verification code TTL, minutes
//	-w int      post-verification grace window, minutes
//	-m string   SMTP host
//	-o int      SMTP port
//	-u string   SMTP user
//	-p string   SMTP password
//	-r string   SMTP sender address
//	-n int      SMTP exchange timeout, seconds
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-f", "-t", "-l", "-w", "-m", "-o", "-u", "-p", "-r", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.PolicyFile, "f", config.PolicyFile, "password policy file")

	storageTimeout := fs.Int("t", int(config.StorageTimeout.Seconds()), "storage_timeout (in seconds)")
	codeTTL := fs.Int("l", int(config.CodeTTL.Minutes()), "code_ttl (in minutes)")
	graceWindow := fs.Int("w", int(config.VerifiedGraceWindow.Minutes()), "verified_grace_window (in minutes)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "o", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "p", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.SMTPFrom, "r", config.SMTPFrom, "SMTP sender address")
	smtpTimeout := fs.Int("n", int(config.SMTPTimeout.Seconds()), "smtp_timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.StorageTimeout = time.Duration(*storageTimeout) * time.Second
	config.CodeTTL = time.Duration(*codeTTL) * time.Minute
	config.VerifiedGraceWindow = time.Duration(*graceWindow) * time.Minute
	config.SMTPTimeout = time.Duration(*smtpTimeout) * time.Second
}
