package command

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kvgate/kvgate/internal/auth"
)

// HashPasswordCommand returns the hash-password subcommand.
func HashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Hash a password for the server's user list",
		ArgsUsage: "[password]",
		Description: "Prints an argon2id hash suitable for auth.users[].hash in the\n" +
			"server configuration. With no argument the password is read from\n" +
			"the first line of stdin, so it can be piped in.",
		Action: hashPassword,
	}
}

func hashPassword(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		scanner := bufio.NewScanner(c.App.Reader)
		if scanner.Scan() {
			password = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hash)
	return nil
}
