package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	ui "github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.vocdoni.io/guardians/apiclient"
	"go.vocdoni.io/guardians/artifacts"
	"go.vocdoni.io/guardians/config"
	"go.vocdoni.io/guardians/export"
	"go.vocdoni.io/guardians/log"
	"go.vocdoni.io/guardians/metrics"
)

// app holds what the commands share during one execution.
type app struct {
	cfg     *config.Config
	client  *apiclient.HTTPclient
	metrics *metrics.Agent
	archive *export.ArchiveSink
	// session is the email of the logged in user, if any
	session string
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	log.Init(cfg.LogLevel, cfg.LogOutput)
	if cfg.LogErrorFile != "" {
		if err := log.SetFileErrorLog(cfg.LogErrorFile); err != nil {
			return err
		}
	}
	host, err := cfg.HostURL()
	if err != nil {
		return err
	}
	token, err := cfg.AuthToken()
	if err != nil {
		return err
	}
	if a.client, err = apiclient.NewHTTPclient(host, token); err != nil {
		return err
	}
	a.client.SetTimeout(cfg.FetchTimeout)

	if cfg.MetricsAddr != "" {
		a.metrics = metrics.NewAgent(metrics.DefaultPath)
		artifacts.RegisterMetrics(a.metrics)
		export.RegisterMetrics(a.metrics)
		if _, err := a.metrics.Start(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("cannot start metrics agent: %w", err)
		}
	}

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		return nil
	}
	password, _ := cmd.Flags().GetString("password")
	return a.login(cmd.Context(), email, password)
}

func (a *app) teardown() error {
	var errs []error
	if a.archive != nil {
		errs = append(errs, a.archive.Close())
		a.archive = nil
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.metrics.Stop(ctx))
		a.metrics = nil
	}
	return errors.Join(errs...)
}

func (a *app) login(ctx context.Context, email, password string) error {
	if password == "" {
		p := ui.Prompt{
			Label: fmt.Sprintf("Password for %s", email),
			Mask:  '*',
		}
		var err error
		if password, err = p.Run(); err != nil {
			return err
		}
	}
	logged, err := a.client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("cannot log in: %w", err)
	}
	a.session = logged
	log.Infow("logged in", "email", logged)
	return nil
}

// openArchive opens the local archive once per execution.
func (a *app) openArchive() (*export.ArchiveSink, error) {
	if a.archive != nil {
		return a.archive, nil
	}
	archive, err := export.OpenArchive(a.cfg.ArchiveDir)
	if err != nil {
		return nil, err
	}
	a.archive = archive
	return archive, nil
}

// sink returns where the manifests are exported: the output directory and,
// when enabled, the local archive.
func (a *app) sink() (export.Sink, error) {
	dir, err := export.NewDirSink(a.cfg.OutDir, a.cfg.Gzip)
	if err != nil {
		return nil, err
	}
	if !a.cfg.Archive {
		return dir, nil
	}
	archive, err := a.openArchive()
	if err != nil {
		return nil, err
	}
	return export.MultiSink{dir, archive}, nil
}

func (a *app) newView(sink export.Sink) *artifacts.View {
	ctrl := artifacts.NewController(a.client, artifacts.WithFetchTimeout(a.cfg.FetchTimeout))
	return artifacts.NewView(ctrl, sink)
}

// load selects the election on a new view and waits for its guardians.
func (a *app) load(ctx context.Context, electionID string, sink export.Sink) (*artifacts.View, error) {
	v := a.newView(sink)
	v.SetElection(electionID)
	st, err := v.Wait(ctx)
	if err != nil {
		v.Close()
		return nil, err
	}
	if st.Status == artifacts.StatusError {
		v.Close()
		return nil, errors.New(st.Message)
	}
	return v, nil
}

// splitElection takes the election id from the first of args when there are
// n+1 of them, from the configuration otherwise.
func (a *app) splitElection(args []string, n int) (string, []string, error) {
	if len(args) == n+1 {
		return args[0], args[1:], nil
	}
	if a.cfg.ElectionID == "" {
		return "", nil, fmt.Errorf("no election id given, use an argument or --election")
	}
	return a.cfg.ElectionID, args, nil
}
