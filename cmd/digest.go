package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/digest"
	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/monitoring"
	"github.com/maplanning/lead-scout/internal/pipeline"
)

// digestLookbackDays is the window a weekly digest covers.
const digestLookbackDays = 7

var (
	digestSources   []string
	digestDays      int
	digestFromStore bool
	digestOut       string
	digestTopK      int
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build and mail the weekly lead digest",
	Long: "Runs the pipeline over the last week (or reads the lead store with --from-store), " +
		"keeps the top leads, and mails them as an HTML digest. --out writes the HTML instead of sending.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if digestOut == "" {
			if err := cfg.Validate("digest"); err != nil {
				return err
			}
		}

		leads, err := digestCandidates(ctx)
		if err != nil {
			return err
		}

		topK := cfg.Digest.TopK
		if cmd.Flags().Changed("top-k") {
			topK = digestTopK
		}
		picked := digest.Select(leads, cfg.Digest.MinScore, topK)

		body, err := digest.Render(picked, digest.Options{
			WeekEnding: time.Now(),
			Origin:     cfg.Digest.Origin,
		})
		if err != nil {
			return err
		}

		if digestOut != "" {
			if err := os.WriteFile(digestOut, []byte(body), 0o644); err != nil {
				return eris.Wrapf(err, "write digest %s", digestOut)
			}
			zap.L().Info("digest written", zap.String("path", digestOut), zap.Int("leads", len(picked)))
			return nil
		}

		if len(picked) == 0 {
			zap.L().Info("digest: no qualified leads this week, nothing sent")
			return nil
		}

		mailer, err := digest.NewMailer(mailerConfig())
		if err != nil {
			return err
		}
		return mailer.Send(ctx, digest.Subject(len(picked)), body)
	},
}

var digestSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the SMTP password in the OS keyring",
	Long:  "Reads the SMTP password from the first line of stdin and stores it under the digest keyring account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		account := keyringAccount()
		if account == "" {
			return eris.New("digest.sender or digest.keyring_account is required")
		}
		pw, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := digest.SetPassword(account, pw); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored SMTP password for %s\n", account)
		return nil
	},
}

// digestCandidates returns ranked leads for the digest window.
func digestCandidates(ctx context.Context) ([]model.ScoredLead, error) {
	days := digestLookbackDays
	if digestDays > 0 {
		days = digestDays
	}

	if digestFromStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck

		all, err := st.LoadAll(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "load leads")
		}
		return recentLeads(all, time.Now().AddDate(0, 0, -days)), nil
	}

	env, err := initPipeline(ctx)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	return runDigestPipeline(ctx, env, days)
}

// runDigestPipeline runs a fresh batch for the digest. A degraded run still
// yields leads and is reported to the monitoring webhook.
func runDigestPipeline(ctx context.Context, env *pipelineEnv, days int) ([]model.ScoredLead, error) {
	res, err := env.Engine.Run(ctx, pipeline.Request{
		Sources:      defaultSources(digestSources),
		LookbackDays: days,
		MinScore:     cfg.Digest.MinScore,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline run")
	}
	for _, w := range res.Warnings {
		zap.L().Warn("digest: degraded run", zap.String("warning", w.String()))
	}
	if res.Degraded() && env.Alerter != nil {
		monitoring.NotifyRun(ctx, env.Alerter, monitoring.SnapshotRun(res))
	}
	return res.Leads, nil
}

// recentLeads keeps stored leads seen since the cutoff, ranked.
func recentLeads(all []model.PersistedLead, since time.Time) []model.ScoredLead {
	var out []model.ScoredLead
	for _, l := range all {
		if l.LastSeen.Before(since) {
			continue
		}
		out = append(out, l.ScoredLead)
	}
	pipeline.Rank(out)
	return out
}

func mailerConfig() digest.MailerConfig {
	return digest.MailerConfig{
		Host:           cfg.Digest.SMTPHost,
		Port:           cfg.Digest.SMTPPort,
		Sender:         cfg.Digest.Sender,
		Recipient:      cfg.Digest.Recipient,
		KeyringAccount: keyringAccount(),
	}
}

// keyringAccount defaults to an account derived from the sender address.
func keyringAccount() string {
	if cfg.Digest.KeyringAccount != "" {
		return cfg.Digest.KeyringAccount
	}
	if cfg.Digest.Sender == "" {
		return ""
	}
	return "lead-scout:smtp:" + cfg.Digest.Sender
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", eris.Wrap(err, "read password")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", eris.New("no password on stdin")
	}
	return line, nil
}

func init() {
	f := digestCmd.Flags()
	f.StringSliceVar(&digestSources, "sources", nil, "comma-separated source names")
	f.IntVar(&digestDays, "days", 0, "lookback window in days (default 7)")
	f.BoolVar(&digestFromStore, "from-store", false, "build the digest from the lead store instead of a fresh run")
	f.StringVar(&digestOut, "out", "", "write the HTML to this file instead of sending")
	f.IntVar(&digestTopK, "top-k", 0, "number of leads to include (default from config)")

	digestCmd.AddCommand(digestSetPasswordCmd)
	rootCmd.AddCommand(digestCmd)
}
