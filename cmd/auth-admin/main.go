// Command auth-admin provisions accounts and key material for the auth
// service. It talks to the database directly and uses the same
// AUTH_* environment as the server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/dricommerce/authcore/internal/auth/app"
	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/pkg/cryptox"
	"github.com/dricommerce/authcore/pkg/jwtx"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

const usage = `usage: auth-admin <command> [flags]

commands:
  create-user   create an account (password read from the terminal or stdin)
  create-admin  create-user with -role ADMIN
  deactivate    block logins and refreshes for an account
  activate      re-enable a deactivated account
  gen-keys      write a PEM signing key pair for AUTH_KEY_MODE=file
`

type env struct {
	stdin  io.Reader
	stdout io.Writer
	cfg    app.Config
}

func main() {
	e := env{stdin: os.Stdin, stdout: os.Stdout, cfg: app.LoadConfig()}
	if err := run(context.Background(), os.Args[1:], e); err != nil {
		fmt.Fprintln(os.Stderr, "auth-admin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, e env) error {
	if len(args) == 0 {
		fmt.Fprint(e.stdout, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "create-user":
		return createUser(ctx, args[1:], e, "")
	case "create-admin":
		return createUser(ctx, args[1:], e, domain.RoleAdmin)
	case "deactivate":
		return setActive(ctx, args[1:], e, false)
	case "activate":
		return setActive(ctx, args[1:], e, true)
	case "gen-keys":
		return genKeys(args[1:], e)
	case "-h", "--help", "help":
		fmt.Fprint(e.stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func createUser(ctx context.Context, args []string, e env, forceRole domain.Role) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(e.stdout)
	email := fs.String("email", "", "account email (required)")
	name := fs.String("name", "", "display name, defaults to the email's local part")
	roleFlag := fs.String("role", string(domain.RoleCustomer), "CUSTOMER, SELLER or ADMIN")
	generate := fs.Bool("generate-password", false, "generate a random password and print it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	role := forceRole
	if role == "" {
		r, err := domain.ParseRole(*roleFlag)
		if err != nil {
			return err
		}
		role = r
	}

	var password string
	if *generate {
		p, err := cryptox.GeneratePassword()
		if err != nil {
			return err
		}
		password = p
	} else {
		p, err := promptPassword(e)
		if err != nil {
			return err
		}
		password = p
	}

	st, err := app.OpenStore(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pepper, err := cryptox.LoadOrCreatePepper(e.cfg.PepperFile)
	if err != nil {
		return err
	}

	svc := service.NewBootstrapService(st, cryptox.NewHasher(pepper), nil)
	u, err := svc.CreateUser(ctx, service.NewUser{
		Name:     *name,
		Email:    *email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "created %s %s (%s)\n", u.Role, u.Email, u.ID)
	if *generate {
		fmt.Fprintf(e.stdout, "password: %s\n", password)
	}
	return nil
}

// setActive flips the account flag. Outstanding access tokens stay valid
// until they expire; refreshes are refused once the account is inactive.
func setActive(ctx context.Context, args []string, e env, active bool) error {
	name := "deactivate"
	if active {
		name = "activate"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stdout)
	email := fs.String("email", "", "account email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	st, err := app.OpenStore(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	u, err := st.Users().GetUserByEmail(ctx, domain.NormalizeEmail(*email))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no account for %s", domain.NormalizeEmail(*email))
	}
	if err != nil {
		return err
	}
	if u.Active == active {
		fmt.Fprintf(e.stdout, "%s (%s) already %sd\n", u.Email, u.ID, name)
		return nil
	}
	if err := st.Users().SetActive(ctx, u.ID, active); err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "%sd %s (%s)\n", name, u.Email, u.ID)
	return nil
}

// promptPassword reads without echo from a terminal and asks twice; piped
// input is read as a single line.
func promptPassword(e env) (string, error) {
	f, ok := e.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(e.stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(e.stdout, "Password: ")
	first, err := readPassword(int(f.Fd()))
	fmt.Fprintln(e.stdout)
	if err != nil {
		return "", err
	}
	fmt.Fprint(e.stdout, "Repeat password: ")
	second, err := readPassword(int(f.Fd()))
	fmt.Fprintln(e.stdout)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func genKeys(args []string, e env) error {
	fs := flag.NewFlagSet("gen-keys", flag.ContinueOnError)
	fs.SetOutput(e.stdout)
	alg := fs.String("alg", e.cfg.Algorithm, "RS256, ES256 or EdDSA")
	bits := fs.Int("bits", 4096, "RSA key size")
	dir := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	privPEM, pubPEM, err := cryptox.GenerateKeyPair(*alg, *bits)
	if err != nil {
		return err
	}
	kid, err := publicKID(pubPEM)
	if err != nil {
		return err
	}

	privPath := filepath.Join(*dir, "signing.key")
	pubPath := filepath.Join(*dir, "signing.pub")
	if err := os.WriteFile(privPath, privPEM, 0600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pubPEM, 0644); err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "AUTH_ALGORITHM=%s\nAUTH_PRIVATE_KEY_FILE=%s\nAUTH_PUBLIC_KEY_FILE=%s\n# kid %s\n",
		*alg, privPath, pubPath, kid)
	return nil
}

func publicKID(pubPEM []byte) (string, error) {
	pub, err := cryptox.ParsePublicKey(pubPEM)
	if err != nil {
		return "", err
	}
	return jwtx.Thumbprint(pub)
}
