// Command tubex is a CLI frontend for the tubeexplode library: video info,
// downloads, playlists, search, and captions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"

	"github.com/scgreenhalgh/tubeexplode"
	"github.com/scgreenhalgh/tubeexplode/client"
	"github.com/scgreenhalgh/tubeexplode/downloader"
	"github.com/scgreenhalgh/tubeexplode/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "tubex",
	Short:         "Fetch video info, streams, playlists, and captions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			logger.SetLevel(slog.LevelDebug)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.tubex.yaml)")
	pf.Duration("timeout", 30*time.Second, "HTTP timeout")
	pf.Int("retries", 3, "HTTP retries for transient errors")
	pf.String("ua", "", "override User-Agent header")
	pf.String("proxy", "", "proxy URL (http/https/socks)")
	pf.String("cookies", "", "path to a Netscape cookies.txt file")
	pf.BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlags(pf)

	rootCmd.AddCommand(infoCmd, downloadCmd, playlistCmd, searchCmd, captionsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".tubex")
	}
	viper.SetEnvPrefix("TUBEX")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// newClient assembles a library client from the persistent flags and config
// file.
func newClient() (*tubeexplode.Client, error) {
	hc, err := client.NewWith(client.Config{
		Timeout:     viper.GetDuration("timeout"),
		Retries:     viper.GetInt("retries"),
		UserAgent:   viper.GetString("ua"),
		ProxyURL:    viper.GetString("proxy"),
		CookiesPath: viper.GetString("cookies"),
	})
	if err != nil {
		return nil, err
	}
	return tubeexplode.New().WithHTTPClient(hc), nil
}

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Show video metadata and available formats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := newClient()
		if err != nil {
			return err
		}
		info, err := tx.GetVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Title:    %s\n", info.Title)
		fmt.Printf("Author:   %s\n", info.Author)
		fmt.Printf("Duration: %s\n", (time.Duration(info.Duration) * time.Second))
		fmt.Printf("Views:    %d\n\n", info.ViewCount)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Itag", "Quality", "Mime", "Bitrate", "Size"})
		for _, f := range info.Formats {
			table.Append([]string{
				strconv.Itoa(f.Itag),
				f.Quality,
				f.MimeType,
				strconv.Itoa(f.Bitrate),
				formatSize(f.Size),
			})
		}
		table.Render()
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := newClient()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		ext, _ := cmd.Flags().GetString("ext")
		output, _ := cmd.Flags().GetString("output")
		rate, _ := cmd.Flags().GetString("rate-limit")
		noProgress, _ := cmd.Flags().GetBool("no-progress")

		tx.WithFormat(format, ext)
		if bps := parseRate(rate); bps > 0 {
			tx.WithRateLimit(bps)
		}

		var progress *mpb.Progress
		var bar *mpb.Bar
		if !noProgress {
			progress = mpb.New(mpb.WithWidth(64))
			tx.WithProgress(func(p downloader.Progress) {
				if bar == nil && p.TotalSize > 0 {
					bar = progress.AddBar(p.TotalSize,
						mpb.PrependDecorators(decor.CountersKibiByte("% .2f / % .2f")),
						mpb.AppendDecorators(decor.Percentage()),
					)
				}
				if bar != nil {
					bar.SetCurrent(p.DownloadedSize)
				}
			})
		}

		if err := tx.Download(cmd.Context(), args[0], output); err != nil {
			return err
		}
		if progress != nil {
			progress.Wait()
		}
		fmt.Println("Done")
		return nil
	},
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <url>",
	Short: "List the videos of a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := newClient()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		items, err := tx.GetPlaylistItems(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"#", "Video ID", "Title"})
		for _, it := range items {
			table.Append([]string{strconv.Itoa(it.Index), it.VideoID, it.Title})
		}
		table.Render()
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := newClient()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		results, err := tx.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Video ID", "Title", "Author"})
		for _, r := range results {
			table.Append([]string{r.VideoID, r.Title, r.Author})
		}
		table.Render()
		return nil
	},
}

var captionsCmd = &cobra.Command{
	Use:   "captions <url>",
	Short: "Print the captions of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := newClient()
		if err != nil {
			return err
		}
		lang, _ := cmd.Flags().GetString("lang")
		caps, err := tx.GetCaptions(cmd.Context(), args[0], lang)
		if err != nil {
			return err
		}
		for _, c := range caps {
			fmt.Printf("[%s] %s\n", formatTimestamp(c.Start), c.Text)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().String("format", "", "format selector ('best', 'itag=22', 'height<=480')")
	downloadCmd.Flags().String("ext", "", "extension filter ('mp4', 'webm')")
	downloadCmd.Flags().StringP("output", "o", "", "output path; empty derives a name from the title")
	downloadCmd.Flags().String("rate-limit", "", "download rate limit ('2MiB/s', '500KiB/s')")
	downloadCmd.Flags().Bool("no-progress", false, "disable the progress bar")

	playlistCmd.Flags().Int("limit", 0, "max items (0 means all)")
	searchCmd.Flags().Int("limit", 20, "max results")
	captionsCmd.Flags().String("lang", "", "caption language code; empty picks the first track")
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

func formatTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// parseRate parses "2MiB/s" style limits into bytes per second.
func parseRate(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	s = strings.TrimSuffix(s, "/S")
	mul := int64(1)
	for _, suf := range []struct {
		name string
		mul  int64
	}{
		{"KIB", 1024}, {"MIB", 1 << 20}, {"GIB", 1 << 30},
		{"KB", 1000}, {"MB", 1000 * 1000}, {"GB", 1000 * 1000 * 1000},
	} {
		if strings.HasSuffix(s, suf.name) {
			s = strings.TrimSuffix(s, suf.name)
			mul = suf.mul
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return int64(v * float64(mul))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
