// Command blogstats prints aggregate figures for a set of blogs, read either
// from a JSON file or from the configured store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/config"
	"github.com/sushihentaime/bloglist/internal/stats"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error("blogstats failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("blogstats", flag.ContinueOnError)
	file := fs.String("file", "", "path to a JSON array of blogs")
	configPath := fs.String("config", "", "path to the dotenv configuration file of the store to read")
	aggregate := fs.String("aggregate", "all", "one of all, total, favorite, most-blogs, most-likes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		blogs []blogservice.Blog
		err   error
	)
	switch {
	case *file != "":
		blogs, err = readFile(*file)
	case *configPath != "":
		blogs, err = readStore(*configPath)
	default:
		return errors.New("one of -file or -config is required")
	}
	if err != nil {
		return err
	}

	result, err := compute(*aggregate, blogs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	return enc.Encode(result)
}

func compute(aggregate string, blogs []blogservice.Blog) (any, error) {
	switch aggregate {
	case "all":
		return stats.Summarize(blogs), nil
	case "total":
		return map[string]int{"total_likes": stats.TotalLikes(blogs)}, nil
	case "favorite":
		return stats.FavoriteBlog(blogs)
	case "most-blogs":
		return stats.MostBlogs(blogs)
	case "most-likes":
		return stats.MostLikes(blogs)
	}

	return nil, fmt.Errorf("unknown aggregate %q", aggregate)
}

func readFile(path string) ([]blogservice.Blog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var blogs []blogservice.Blog
	if err := json.Unmarshal(data, &blogs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	for i, b := range blogs {
		if b.Likes < 0 {
			return nil, fmt.Errorf("%s: blog %d (%q) has negative likes", path, i, b.ID)
		}
	}

	return blogs, nil
}

func readStore(path string) ([]blogservice.Blog, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := common.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		defer common.CloseMongo(client)

		return blogservice.NewMongoModel(db).GetAll(ctx)

	default:
		db, err := common.NewDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBMaxIdleTime)
		if err != nil {
			return nil, err
		}
		defer common.CloseDB(db)

		return blogservice.NewPostgresModel(db).GetAll(ctx)
	}
}
