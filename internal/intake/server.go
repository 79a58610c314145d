// Copyright (C) 2025  The vaultmail authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package intake

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/gliepins/vaultmail/internal/log"
)

func init() {
	viper.SetDefault("intake.address", "127.0.0.1:8025")
	viper.SetDefault("intake.maxsize", 25<<20)
}

// Server exposes the delivery pipeline over http. The mail-transfer agent
// pipes raw messages into it, one request per message, synchronously.
type Server struct {
	engine   *gin.Engine
	pipeline *Pipeline
	address  string
	maxSize  int64
}

// NewServer creates a new intake Server using configuration from viper.
//
// `intake.address` is the listen address.
// `intake.maxsize` is the maximum accepted message size in bytes.
func NewServer(pipeline *Pipeline) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	server := &Server{
		engine:   engine,
		pipeline: pipeline,
		address:  viper.GetString("intake.address"),
		maxSize:  viper.GetInt64("intake.maxsize"),
	}

	engine.POST("/intake", server.handleIntake)

	return server
}

// Run serves the intake endpoint until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	log.Info().
		Str("address", s.address).
		Msg("intake server listening")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) handleIntake(c *gin.Context) {
	requestID := uuid.NewString()
	ctx := log.WithRequest(c.Request.Context(), requestID)

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxSize))
	if err != nil {
		s.abort(c, requestID, statusOfBodyError(err), CodeInvalidRequest)
		return
	}

	result, err := s.pipeline.Deliver(ctx, Delivery{
		VaultboxID: c.Query("vaultbox_id"),
		Recipient:  c.Query("email"),
		Raw:        raw,
	})

	if err != nil {
		code := FailureCodeOf(err)

		log.WarnContext(ctx).
			Err(err).
			Str("code", string(code)).
			Msg("delivery failed")

		s.abort(c, requestID, statusOf(code), code)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"request":  requestID,
		"vaultbox": result.VaultboxID,
		"path":     result.Path,
		"bytes":    result.Bytes,
	})
}

func (s *Server) abort(c *gin.Context, requestID string, status int, code FailureCode) {
	c.JSON(status, gin.H{
		"ok":      false,
		"request": requestID,
		"error":   string(code),
	})
}

func statusOf(code FailureCode) int {
	switch code {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnknownDomain:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func statusOfBodyError(err error) int {
	var maxBytesError *http.MaxBytesError

	if errors.As(err, &maxBytesError) {
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusBadRequest
}
