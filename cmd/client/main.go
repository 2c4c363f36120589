// Command client is a terminal front end for the yaothink API. It keeps the
// signed-in session on disk, drives the login/register flow and reads the
// user's profile and analysis history through the authenticated HTTP client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yaothink/internal/apiclient"
	"yaothink/internal/authflow"
	"yaothink/internal/guard"
	"yaothink/internal/logger"
	"yaothink/internal/session"
)

const defaultBaseURL = "http://localhost:8000"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logger.New("client")

	stateDir := os.Getenv("YAOTHINK_STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		stateDir = filepath.Join(home, ".yaothink")
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	baseURL := defaultBaseURL
	if env := os.Getenv("YAOTHINK_API_URL"); env != "" {
		baseURL = strings.TrimRight(env, "/")
	}

	sessions, err := session.NewStore(stateDir, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	api := apiclient.New(baseURL, sessions, apiclient.WithLogger(log))
	flow := authflow.New(api, sessions, authflow.WithLogger(log))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "send-code":
		err = runSendCode(ctx, flow, os.Args[2:])
	case "login":
		err = runLogin(ctx, flow, sessions, os.Args[2:])
	case "register":
		err = runRegister(ctx, flow, sessions, os.Args[2:])
	case "logout":
		sessions.Logout()
		fmt.Println("已退出登录")
	case "whoami":
		err = runWhoami(sessions)
	case "profile":
		err = runProfile(ctx, api, sessions)
	case "history":
		err = runHistory(ctx, api, sessions, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: client <command> [flags]

Commands:
  send-code  --phone <number>
  login      --channel phone-sms|phone-password|email-password [--phone] [--code] [--email] [--password]
  register   --channel phone-sms|email-password [--phone] [--code] [--email] [--password] [--nickname]
  logout
  whoami
  profile
  history    [--kind bazi|ziwei|yijing|psychology|fusion] [--limit N] [--json]`)
}

func runSendCode(ctx context.Context, flow *authflow.Flow, args []string) error {
	fs := flag.NewFlagSet("send-code", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number")
	fs.Parse(args)

	flow.SetPhone(*phone)
	if err := flow.RequestCode(ctx); err != nil {
		return err
	}
	if code := flow.Fields().Code; code != "" {
		fmt.Println("验证码已发送 (debug):", code)
	} else {
		fmt.Println("验证码已发送")
	}
	return nil
}

func fillCredentials(flow *authflow.Flow, fs *flag.FlagSet, args []string) error {
	channel := fs.String("channel", string(authflow.ChannelPhoneSMS), "credential channel")
	phone := fs.String("phone", "", "phone number")
	code := fs.String("code", "", "verification code")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	nickname := fs.String("nickname", "", "nickname (register only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow.SetChannel(authflow.Channel(*channel))
	flow.SetPhone(*phone)
	flow.SetCode(*code)
	flow.SetEmail(*email)
	flow.SetPassword(*password)
	flow.SetNickname(*nickname)
	return nil
}

func runLogin(ctx context.Context, flow *authflow.Flow, sessions *session.Store, args []string) error {
	flow.SetMode(authflow.ModeLogin)
	if err := fillCredentials(flow, flag.NewFlagSet("login", flag.ExitOnError), args); err != nil {
		return err
	}
	if err := flow.Submit(ctx); err != nil {
		return err
	}
	return printSession(sessions, "登录成功")
}

func runRegister(ctx context.Context, flow *authflow.Flow, sessions *session.Store, args []string) error {
	flow.SetMode(authflow.ModeRegister)
	if err := fillCredentials(flow, flag.NewFlagSet("register", flag.ExitOnError), args); err != nil {
		return err
	}
	if err := flow.Submit(ctx); err != nil {
		return err
	}
	return printSession(sessions, "注册成功")
}

func printSession(sessions *session.Store, banner string) error {
	current := sessions.Current()
	if current.User == nil {
		fmt.Println(banner)
		return nil
	}
	fmt.Printf("%s: %s\n", banner, displayName(current.User))
	return nil
}

func runWhoami(sessions *session.Store) error {
	current := sessions.Current()
	if !current.IsAuthenticated {
		fmt.Println("未登录")
		return nil
	}
	fmt.Printf("%s (id=%s)\n", displayName(current.User), current.User.ID)
	return nil
}

func displayName(u *session.User) string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Phone != "" {
		return u.Phone
	}
	return u.Email
}

// requireAuth gates the protected commands the same way protected routes are
// gated: unauthenticated sessions are bounced back with a login prompt.
func requireAuth(sessions *session.Store, from string) error {
	g := guard.New(sessions, guard.WithOnAuthRequired(func(from string) {
		fmt.Fprintf(os.Stderr, "请先登录后再访问 %s\n", from)
	}))
	if d := g.Check(from); !d.Allowed {
		return fmt.Errorf("需要登录")
	}
	return nil
}

func runProfile(ctx context.Context, api *apiclient.Client, sessions *session.Store) error {
	if err := requireAuth(sessions, "/profile"); err != nil {
		return err
	}
	var profile json.RawMessage
	if err := api.Get(ctx, "/api/user/profile", &profile); err != nil {
		return err
	}
	return printJSON(profile)
}

func runHistory(ctx context.Context, api *apiclient.Client, sessions *session.Store, args []string) error {
	if err := requireAuth(sessions, "/history"); err != nil {
		return err
	}
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	kind := fs.String("kind", "bazi", "record kind: bazi|ziwei|yijing|psychology|fusion")
	limit := fs.Int("limit", 0, "maximum records")
	asJSON := fs.Bool("json", false, "print raw records instead of formatted output")
	fs.Parse(args)

	path := "/api/user/history/" + *kind
	if *limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, *limit)
	}
	var raw json.RawMessage
	if err := api.Get(ctx, path, &raw); err != nil {
		return err
	}
	if *asJSON {
		return printJSON(raw)
	}

	var records []historyRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	return renderRecords(os.Stdout, records)
}

func printJSON(raw json.RawMessage) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(raw)
}
