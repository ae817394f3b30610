package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/drstein77/storefront/internal/catalog"
	"github.com/drstein77/storefront/internal/config"
	"github.com/drstein77/storefront/internal/controllers"
	"github.com/drstein77/storefront/internal/dbkeeper"
	"github.com/drstein77/storefront/internal/filekeeper"
	"github.com/drstein77/storefront/internal/logger"
	"github.com/drstein77/storefront/internal/storage"
	"go.uber.org/zap"
)

type Server struct {
	srv     *http.Server
	ctx     context.Context
	option  *config.Options
	storage *storage.MemoryStorage

	done     chan struct{}
	doneOnce sync.Once

	Log *logger.Logger
}

// NewServer parses the configuration and builds the logger; Serve wires everything else.
func NewServer(ctx context.Context) *Server {
	server := new(Server)
	server.ctx = ctx
	server.done = make(chan struct{})

	// create and initialize a new option instance
	server.option = config.NewOptions()
	server.option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(server.option.LogLevel(), server.option.LogConsole())
	if err != nil {
		log.Fatalln(err)
	}
	server.Log = nLogger

	return server
}

// Serve builds the stores and starts the HTTP server. It blocks until Shutdown has finished.
func (server *Server) Serve() {
	option := server.option

	keeper, err := server.newKeeper()
	if err != nil {
		server.Log.Error("cannot initialize keeper", zap.Error(err))
		server.Log.Sync()
		log.Fatalln(err)
	}

	client := catalog.NewClient(option.ProductsAPIURL(), option.ProductsLength(), option.FetchTimeout())
	products := catalog.NewStore(client, option.ProductsTTL(), server.Log)
	server.storage = storage.NewMemoryStorage(server.ctx, products, keeper, server.Log)

	// warm the catalog so the first visitor does not wait for the upstream
	go func() {
		if err := server.storage.FetchProducts(server.ctx, false); err != nil {
			server.Log.Error("initial products fetch failed", zap.Error(err))
		}
	}()

	// create router and mount routes
	basecontr := controllers.NewBaseController(server.ctx, server.storage, server.Log)

	// configure and start the server
	server.srv = &http.Server{
		Addr:              option.RunAddr(),
		Handler:           basecontr.Route(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", option.RunAddr())
	if err != nil {
		server.Log.Error("cannot listen", zap.String("address", option.RunAddr()), zap.Error(err))
		server.storage.Close()
		server.Log.Sync()
		return
	}

	server.Log.Info("Starting server", zap.String("address", ln.Addr().String()))
	server.listen(ln)
}

// listen serves on ln and, once the server is closed, waits for Shutdown to drain requests and release the keeper.
func (server *Server) listen(ln net.Listener) {
	select {
	case <-server.done:
		ln.Close()
		return
	default:
	}

	if err := server.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		server.Log.Error("server error", zap.Error(err))
		return
	}
	<-server.done
}

// Shutdown stops accepting requests, waits up to timeout for in-flight ones and closes the keeper.
func (server *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if server.srv != nil {
		if err := server.srv.Shutdown(ctx); err != nil {
			server.Log.Error("server shutdown error", zap.Error(err))
		}
	}
	if server.storage != nil {
		server.storage.Close()
	}

	server.Log.Info("Server stopped")
	server.Log.Sync()
	server.doneOnce.Do(func() { close(server.done) })
}

// newKeeper picks PostgreSQL when a DSN is configured and the data directory otherwise.
func (server *Server) newKeeper() (storage.Keeper, error) {
	if server.option.DataBaseDSN() != "" {
		kp, err := dbkeeper.NewDBKeeper(server.ctx, server.option.DataBaseDSN, server.Log)
		if err != nil {
			return nil, err
		}
		return kp, nil
	}

	kp, err := filekeeper.NewFileKeeper(server.option.DataDir(), server.Log)
	if err != nil {
		return nil, err
	}
	return kp, nil
}
