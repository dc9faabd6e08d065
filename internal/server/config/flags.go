package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/tubekeeper/internal/flagx"
)

// parseFlags applies command-line overrides.
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-d string   PostgreSQL DSN
//	-s string   access token secret
//	-S string   refresh token secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-w int      bcrypt cost
//	-f string   upload staging directory
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Durations are given in whole minutes.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-S", "-t", "-r", "-w", "-f", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "S", config.RefreshTokenSecret, "refresh token secret")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.IntVar(&config.PasswordCost, "w", config.PasswordCost, "bcrypt cost")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "upload staging directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Only explicit flags touch durations; sub-minute values from JSON or env
	// would otherwise be truncated.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
		}
	})
	return nil
}
