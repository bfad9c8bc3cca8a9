package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
	usrSvc  user.ServiceInterface
	refSvc  refdata.ServiceInterface
	out     io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	out := cli.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix\n")
	cli.printf("  adduser -username USERNAME -email EMAIL [-admin|-tutor] - create or update an active user\n")
	cli.printf("  resetpassword -username USERNAME|EMAIL - reset user's password\n")
	cli.printf("  addref -kind district|school|subject|class_level -name NAME - add a reference entry\n")
	cli.printf("  purgeinactive - delete accounts whose activation link has expired\n")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user the admin role.")
	addUserTutor := addUserCmd.Bool("tutor", false, "Give the user the tutor role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addRefCmd := flag.NewFlagSet("addref", flag.ContinueOnError)
	addRefKind := addRefCmd.String("kind", "", "The reference table: district, school, subject or class_level.")
	addRefName := addRefCmd.String("name", "", "The entry name; the level number for class levels.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" || (*addUserAdmin && *addUserTutor) {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := user.RoleStudent
		switch {
		case *addUserAdmin:
			role = user.RoleAdmin
		case *addUserTutor:
			role = user.RoleTutor
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, role)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "addref":
		if err := addRefCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addRefKind == "" || *addRefName == "" {
			addRefCmd.Usage()
			return errHelp
		}
		return cli.addRef(refdata.Kind(*addRefKind), *addRefName)

	case "purgeinactive":
		return cli.purgeInactive()

	default:
		cli.printUsage()
		return errHelp
	}
}
