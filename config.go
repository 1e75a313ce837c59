/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/imposter/internal/game"
)

type Config struct {
	archive        string
	answerTime     time.Duration
	bind           string
	discussionTime time.Duration
	maxPlayers     int
	messageBurst   int
	messageRate    float64
	minPlayers     int
	port           int
	prefix         string
	profile        bool
	questions      string
	resultsPause   time.Duration
	revealPause    time.Duration
	rounds         int
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	voteTime       time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.minPlayers < 2 {
		return fmt.Errorf("invalid minimum player count (must be at least 2): %d", c.minPlayers)
	}
	if c.maxPlayers < c.minPlayers {
		return fmt.Errorf("invalid maximum player count (must be at least --min-players): %d", c.maxPlayers)
	}
	if c.rounds < game.MinRounds || c.rounds > game.MaxRounds {
		return fmt.Errorf("invalid round count (must be between %d-%d inclusive): %d", game.MinRounds, game.MaxRounds, c.rounds)
	}
	if c.messageRate <= 0 || c.messageBurst < 1 {
		return errors.New("--message-rate must be positive and --message-burst at least 1")
	}

	for name, d := range map[string]time.Duration{
		"answer-time":     c.answerTime,
		"discussion-time": c.discussionTime,
		"vote-time":       c.voteTime,
		"reveal-pause":    c.revealPause,
		"results-pause":   c.resultsPause,
	} {
		if d < time.Second {
			return fmt.Errorf("invalid --%s (must be at least 1s): %s", name, d)
		}
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// defaults are the lobby settings every new room starts with. Out of range
// durations are clamped the same way host-provided settings are.
func (c *Config) defaults() game.Settings {
	return game.Settings{
		Rounds:         c.rounds,
		AnswerTime:     int(c.answerTime / time.Second),
		DiscussionTime: int(c.discussionTime / time.Second),
		VoteTime:       int(c.voteTime / time.Second),
	}.Normalize(game.DefaultSettings())
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("IMPOSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "imposter",
		Short:         "A real-time party game where one player answers a different question.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			setupLogging(cfg)

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	def := game.DefaultSettings()

	fs.StringVar(&cfg.archive, "archive", "", "sqlite database to record finished games in, disabled if empty (env: IMPOSTER_ARCHIVE)")
	fs.DurationVar(&cfg.answerTime, "answer-time", time.Duration(def.AnswerTime)*time.Second, "default time to answer each question (env: IMPOSTER_ANSWER_TIME)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: IMPOSTER_BIND)")
	fs.DurationVar(&cfg.discussionTime, "discussion-time", time.Duration(def.DiscussionTime)*time.Second, "default time to discuss answers (env: IMPOSTER_DISCUSSION_TIME)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 12, "maximum players per room (env: IMPOSTER_MAX_PLAYERS)")
	fs.IntVar(&cfg.messageBurst, "message-burst", 10, "burst of messages allowed per connection (env: IMPOSTER_MESSAGE_BURST)")
	fs.Float64Var(&cfg.messageRate, "message-rate", 5, "sustained messages per second allowed per connection (env: IMPOSTER_MESSAGE_RATE)")
	fs.IntVar(&cfg.minPlayers, "min-players", 3, "minimum players needed to start a game (env: IMPOSTER_MIN_PLAYERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: IMPOSTER_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: IMPOSTER_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: IMPOSTER_PROFILE)")
	fs.StringVar(&cfg.questions, "questions", "", "JSON file of question pairs, built-in set if empty (env: IMPOSTER_QUESTIONS)")
	fs.DurationVar(&cfg.resultsPause, "results-pause", 5*time.Second, "pause between round results and the next round (env: IMPOSTER_RESULTS_PAUSE)")
	fs.DurationVar(&cfg.revealPause, "reveal-pause", 3*time.Second, "pause between revealing answers and discussion (env: IMPOSTER_REVEAL_PAUSE)")
	fs.IntVar(&cfg.rounds, "rounds", def.Rounds, "default number of rounds per game (env: IMPOSTER_ROUNDS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: IMPOSTER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: IMPOSTER_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: IMPOSTER_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: IMPOSTER_VERSION)")
	fs.DurationVar(&cfg.voteTime, "vote-time", time.Duration(def.VoteTime)*time.Second, "default time to vote (env: IMPOSTER_VOTE_TIME)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("imposter v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
