package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/khanhvu/outreach/internal/compare"
	"github.com/khanhvu/outreach/internal/credential"
	"github.com/khanhvu/outreach/internal/inbox"
	"github.com/khanhvu/outreach/internal/logging"
	"github.com/khanhvu/outreach/internal/mail/imapmail"
	"github.com/khanhvu/outreach/internal/model"
	"github.com/khanhvu/outreach/internal/outbound"
	"github.com/khanhvu/outreach/internal/store"
	"github.com/khanhvu/outreach/internal/token"
)

const usage = `Usage: outreach <command> [flags]

Commands:
  send            send templated messages to contacts from a workbook
  poll            scan the inbox for tokenized replies and capture attachments
  logs            print recent send, reply, or attachment records
  compare         compare the bid spreadsheets saved for a collection
  set-credential  store the mailbox password in the system keyring

Run "outreach <command> -h" for command flags.`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Println(usage)
		return nil
	}

	switch args[0] {
	case "send":
		return runSend(args[1:])
	case "poll":
		return runPoll(args[1:])
	case "logs":
		return runLogs(args[1:])
	case "compare":
		return runCompare(args[1:])
	case "set-credential":
		return runSetCredential(args[1:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

// setup loads the configuration and builds the logger every command
// starts from.
func setup(configPath string) (*model.Config, *zap.Logger, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// openSession resolves the mailbox password from the keyring and dials
// the mail backend.
func openSession(cfg *model.Config) (*imapmail.Session, error) {
	password, err := credential.Get(cfg.Mail.CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("mailbox password unavailable (run set-credential first): %w", err)
	}

	return imapmail.Dial(imapmail.Config{
		IMAPHost:   cfg.Mail.IMAPHost,
		IMAPPort:   cfg.Mail.IMAPPort,
		SMTPHost:   cfg.Mail.SMTPHost,
		SMTPPort:   cfg.Mail.SMTPPort,
		Username:   cfg.Mail.Username,
		Password:   password,
		TLS:        cfg.Mail.TLS,
		SentFolder: cfg.Send.SentFolder,
	})
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "Path to config file")
	contactsPath := fs.String("contacts", "", "Path to the contacts workbook (required)")
	subject := fs.String("subject", "", "Override the configured subject base")
	templatePath := fs.String("template", "", "Override the configured template path")
	fs.Parse(args)

	if *contactsPath == "" {
		return fmt.Errorf("send: -contacts is required")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *subject != "" {
		cfg.Send.SubjectBase = *subject
	}
	if *templatePath != "" {
		cfg.Send.TemplatePath = *templatePath
	}

	tpl, err := outbound.LoadTemplate(cfg.Send.TemplatePath)
	if err != nil {
		return err
	}

	recipients, err := outbound.LoadContacts(*contactsPath)
	if err != nil {
		return err
	}
	logger.Info("contacts loaded",
		zap.String("file", *contactsPath),
		zap.Int("rows", len(recipients)))

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	sender := outbound.NewSender(st, token.NewIssuer(cfg.Token.Prefix), cfg.Send, logger)
	result, err := sender.BulkSend(context.Background(), sess, recipients, tpl)

	fmt.Printf("\n=== Send Summary ===\n")
	fmt.Printf("Sent: %d\n", len(result.Records))
	fmt.Printf("Failed: %d\n", len(result.Failures))
	for _, f := range result.Failures {
		fmt.Printf("  %s: %v\n", f.Recipient.Email, f.Err)
	}

	return err
}

func runPoll(args []string) error {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "Path to config file")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	capture := inbox.NewCapture(st, cfg.Attachments, logger)
	scanner := inbox.NewScanner(st, capture, token.NewMatcher(cfg.Token.Prefix), cfg.Poll, logger)

	result, err := scanner.Poll(context.Background(), sess)

	fmt.Printf("\n=== Poll Summary ===\n")
	fmt.Printf("Scanned: %d\n", result.Scanned)
	fmt.Printf("Matched: %d\n", result.Matched)
	fmt.Printf("Attachments saved: %d\n", result.Saved)

	return err
}

func runLogs(args []string) error {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "Path to config file")
	kind := fs.String("kind", "replies", "Record kind: sends, replies, or attachments")
	limit := fs.Int("limit", 25, "Maximum records to print")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch *kind {
	case "sends":
		recs, err := st.RecentSends(ctx, *limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "TOKEN\tEMAIL\tCOMPANY\tSENT ON\tSTATUS")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.Token, r.Email, r.Company, r.SentOn.Format("2006-01-02 15:04"), r.Status)
		}
	case "replies":
		recs, err := st.RecentReplies(ctx, *limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "TOKEN\tFROM\tCOMPANY\tRECEIVED ON\tATTACHMENTS")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
				r.Token, r.FromEmail, r.Company, r.ReceivedOn.Format("2006-01-02 15:04"), r.HasAttachments)
		}
	case "attachments":
		recs, err := st.RecentAttachments(ctx, *limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "TOKEN\tFILE\tSIZE\tSAVED PATH")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				r.Token, r.FileName, r.FileSizeBytes, r.SavedPath)
		}
	default:
		return fmt.Errorf("logs: unknown kind %q (want sends, replies, or attachments)", *kind)
	}

	return nil
}

func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "Path to config file")
	collection := fs.String("collection", "", "Collection to compare (omit to list collections)")
	instructions := fs.String("instructions", "", "Extra instructions for the comparison")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *collection == "" {
		collections, err := compare.Collections(cfg.Attachments.BaseDir)
		if err != nil {
			return err
		}
		if len(collections) == 0 {
			fmt.Println("No collections with saved spreadsheets.")
			return nil
		}
		fmt.Println("Collections with saved spreadsheets:")
		for _, c := range collections {
			fmt.Printf("  %s\n", c)
		}
		return nil
	}

	ctx := context.Background()
	comparer, err := compare.NewComparer(ctx, cfg.Bedrock, cfg.Attachments.BaseDir, logger)
	if err != nil {
		return err
	}

	text, files, err := comparer.Compare(ctx, *collection, *instructions)
	if err != nil {
		return err
	}

	fmt.Printf("=== Compared files ===\n")
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	fmt.Printf("\n=== Comparison ===\n%s\n", text)

	return nil
}

func runSetCredential(args []string) error {
	fs := flag.NewFlagSet("set-credential", flag.ExitOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "Path to config file")
	key := fs.String("key", "", "Credential key (defaults to the configured mail credential key)")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *key == "" {
		*key = cfg.Mail.CredentialKey
	}

	fmt.Printf("Value for %q: ", *key)
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading credential value: %w", err)
	}
	value = strings.TrimRight(value, "\r\n")
	if value == "" {
		return fmt.Errorf("empty credential value")
	}

	if err := credential.Set(*key, value); err != nil {
		return err
	}

	fmt.Printf("Stored credential %q.\n", *key)
	return nil
}
