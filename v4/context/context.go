// Copyright 2021 PingCAP, Inc. Licensed under Apache-2.0.

package context

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oradump/oradump/v4/log"
)

// Context carries the go context of a run together with the logger scoped
// to it, so table level fields follow the export through every call.
type Context struct {
	ctx    context.Context
	logger log.Logger
}

// Background return a nop context
func Background() *Context {
	return &Context{
		ctx:    context.Background(),
		logger: log.Zap(),
	}
}

// NewContext return a new Context
func NewContext(ctx context.Context, logger log.Logger) *Context {
	return &Context{
		ctx:    ctx,
		logger: logger,
	}
}

// WithContext set go context
func (c *Context) WithContext(ctx context.Context) *Context {
	return &Context{
		ctx:    ctx,
		logger: c.logger,
	}
}

// WithTimeout sets a timeout associated context.
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	return &Context{
		ctx:    ctx,
		logger: c.logger,
	}, cancel
}

// WithFields returns a context whose logger carries the extra fields.
func (c *Context) WithFields(fields ...zap.Field) *Context {
	return c.WithLogger(c.logger.With(fields...))
}

// Context returns real context
func (c *Context) Context() context.Context {
	return c.ctx
}

// WithLogger set logger
func (c *Context) WithLogger(logger log.Logger) *Context {
	return &Context{
		ctx:    c.ctx,
		logger: logger,
	}
}

// L returns real logger
func (c *Context) L() log.Logger {
	return c.logger
}
