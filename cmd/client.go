package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"SpotiFM/config"
	"SpotiFM/core/api"
	"SpotiFM/core/player"
	"SpotiFM/core/state"
	"SpotiFM/core/viewmodel"
	"SpotiFM/db"
	"SpotiFM/logger"
	"SpotiFM/model"
	"SpotiFM/repository"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var clientConfigPath string

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "命令行客户端",
	Long:  `通过 HTTP 访问 SpotiFM 服务器，本地保存收藏，并用 mpv 播放歌曲。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logger.LogLevel(os.Getenv("LOG_LEVEL"))
		if level == "" {
			level = logger.WarnLevel
		}
		logger.InitLogger(logger.Config{Level: level, Console: true})
	},
}

// clientEnv 客户端依赖：API、本地收藏库和各个仓库
type clientEnv struct {
	cfg       config.ClientConfig
	api       *api.Client
	gdb       *gorm.DB
	home      *repository.HomeRepository
	playlists *repository.PlaylistRepository
	favorites *repository.FavoriteAlbumRepository
}

func newClientEnv(withStore bool) (*clientEnv, error) {
	cfg, err := config.LoadClient(clientConfigPath)
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.BaseURL, cfg.Timeout())
	if err != nil {
		return nil, err
	}
	env := &clientEnv{
		cfg:       cfg,
		api:       client,
		home:      repository.NewHomeRepository(client),
		playlists: repository.NewPlaylistRepository(client),
	}
	if withStore {
		gdb, err := db.OpenFavorites(cfg)
		if err != nil {
			return nil, err
		}
		store, err := db.NewFavoriteStore(gdb)
		if err != nil {
			db.Close(gdb)
			return nil, err
		}
		env.gdb = gdb
		env.favorites = repository.NewFavoriteAlbumRepository(store)
	}
	return env, nil
}

func (e *clientEnv) Close() {
	if e.gdb != nil {
		if err := db.Close(e.gdb); err != nil {
			logger.Warn("failed to close favorites database", logger.ErrorField(err))
		}
	}
}

// loadFeed 用首页 view model 拉取一次 feed
func (e *clientEnv) loadFeed(ctx context.Context) ([]model.Section, error) {
	vm := viewmodel.NewHomeViewModel(e.home)
	defer vm.Close()
	vm.FetchHomeScreen()

	s, err := waitFor(ctx, vm.UiState(), vm.Err, func(s viewmodel.HomeUiState) bool { return !s.IsLoading })
	if err != nil {
		return nil, err
	}
	return s.Feed, nil
}

// findAlbum 在首页 feed 中查找专辑
func (e *clientEnv) findAlbum(ctx context.Context, id int) (model.Album, error) {
	sections, err := e.loadFeed(ctx)
	if err != nil {
		return model.Album{}, err
	}
	for _, section := range sections {
		for _, album := range section.Albums {
			if album.ID == id {
				return album, nil
			}
		}
	}
	return model.Album{}, fmt.Errorf("album %d not found in feed", id)
}

// waitFor 等待状态满足条件，或 view model 报错，或超时
func waitFor[T any](ctx context.Context, obs state.Observable[T], errFn func() error, done func(T) bool) (T, error) {
	updates, cancel := obs.Subscribe()
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var last T
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return last, fmt.Errorf("state closed")
			}
			last = v
			if done(v) {
				return v, nil
			}
		case <-ticker.C:
			if err := errFn(); err != nil {
				return last, err
			}
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

var clientFeedCmd = &cobra.Command{
	Use:   "feed",
	Short: "显示首页",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv(false)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.Timeout())
		defer cancel()
		sections, err := env.loadFeed(ctx)
		if err != nil {
			return err
		}
		for _, section := range sections {
			fmt.Printf("== %s ==\n", section.SectionTitle)
			for _, album := range section.Albums {
				fmt.Printf("  [%d] %s - %s (%s)\n", album.ID, album.Name, album.Artists, album.Year)
			}
		}
		return nil
	},
}

var clientPlaylistCmd = &cobra.Command{
	Use:   "playlist <album-id>",
	Short: "显示专辑歌曲及收藏状态",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		env, err := newClientEnv(true)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.Timeout())
		defer cancel()
		album, err := env.findAlbum(ctx, id)
		if err != nil {
			return err
		}

		vm := viewmodel.NewPlaylistViewModel(env.playlists, env.favorites)
		defer vm.Close()
		vm.FetchPlaylist(album)
		s, err := waitFor(ctx, vm.UiState(), vm.Err, func(s viewmodel.PlaylistUiState) bool {
			return !s.IsLoading
		})
		if err != nil {
			return err
		}

		mark := " "
		if <-env.favorites.IsFavoriteAlbum(ctx, id) {
			mark = "*"
		}
		fmt.Printf("%s [%d] %s - %s\n", mark, s.Album.ID, s.Album.Name, s.Album.Artists)
		if len(s.Playlist) == 0 {
			fmt.Println("  (no songs)")
		}
		for i, song := range s.Playlist {
			fmt.Printf("  %2d. %-40s %s\n", i, song.Name, song.Length)
		}
		return nil
	},
}

func toggleFavoriteCmd(use, short string, favorite bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <album-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			env, err := newClientEnv(true)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.Timeout())
			defer cancel()

			if favorite {
				album, err := env.findAlbum(ctx, id)
				if err != nil {
					return err
				}
				err = env.favorites.FavoriteAlbum(ctx, album)
			} else {
				err = env.favorites.UnfavoriteAlbum(ctx, model.Album{ID: id})
			}
			if err != nil {
				return err
			}
			fmt.Printf("album %d favorite=%t\n", id, <-env.favorites.IsFavoriteAlbum(ctx, id))
			return nil
		},
	}
}

var clientFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "列出收藏的专辑",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv(true)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.Timeout())
		defer cancel()
		albums := <-env.favorites.FetchFavoriteAlbums(ctx)
		if len(albums) == 0 {
			fmt.Println("no favorite albums")
			return nil
		}
		for _, album := range albums {
			fmt.Printf("[%d] %s - %s\n", album.ID, album.Name, album.Artists)
		}
		return nil
	},
}

var clientPlayCmd = &cobra.Command{
	Use:   "play <album-id> <song-index>",
	Short: "用 mpv 播放专辑中的一首歌",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid song index %q", args[1])
		}
		env, err := newClientEnv(false)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fetchCtx, cancel := context.WithTimeout(ctx, env.cfg.Timeout())
		album, err := env.findAlbum(fetchCtx, id)
		if err != nil {
			cancel()
			return err
		}
		playlist, err := env.playlists.GetPlaylist(fetchCtx, id)
		cancel()
		if err != nil {
			return err
		}
		if index < 0 || index >= len(playlist.Songs) {
			return fmt.Errorf("song index %d out of range (0-%d)", index, len(playlist.Songs)-1)
		}
		song := playlist.Songs[index]

		mpv := player.NewMPV(player.MPVOptions{Path: env.cfg.MPVPath, IPCPath: env.cfg.IPCPath})
		if err := mpv.Start(ctx); err != nil {
			return err
		}
		defer mpv.Close()

		vm := viewmodel.NewPlayerViewModel(mpv, viewmodel.PlayerOptions{
			PollInterval: env.cfg.PollInterval(),
			ResolveMedia: env.api.ResolveMedia,
		})
		defer vm.Close()

		if err := vm.Load(song, album); err != nil {
			return err
		}
		if err := vm.Play(); err != nil {
			return err
		}

		fmt.Printf("Playing %s from %s (Ctrl+C to stop)\n", song.Name, album.Name)
		updates, unsubscribe := vm.UiState().Subscribe()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				fmt.Println()
				return nil
			case s := <-updates:
				if s.Err != nil {
					fmt.Println()
					return s.Err
				}
				fmt.Printf("\r%s / %s  playing=%t   ", formatMs(s.CurrentMs), formatMs(s.DurationMs), s.IsPlaying)
			}
		}
	},
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.PersistentFlags().StringVarP(&clientConfigPath, "config", "c", "spotifm.toml", "客户端 TOML 配置文件")
	clientCmd.AddCommand(
		clientFeedCmd,
		clientPlaylistCmd,
		toggleFavoriteCmd("favorite", "收藏专辑", true),
		toggleFavoriteCmd("unfavorite", "取消收藏专辑", false),
		clientFavoritesCmd,
		clientPlayCmd,
	)
}
