package sheets

import (
	"context"

	"cuotas/internal/core"
)

// Ports for outbound adapters.
type (
	// LiquidationWriter publishes the liquidation of one month, replacing any
	// earlier copy for the same month.
	LiquidationWriter interface {
		WriteLiquidation(ctx context.Context, r core.Report) error
	}

	// LiquidationReader returns the last published liquidation for a month.
	LiquidationReader interface {
		ReadLiquidation(ctx context.Context, month core.YearMonth) (core.Report, bool, error)
	}

	// LiquidationStore is an export destination that can be read back.
	LiquidationStore interface {
		LiquidationWriter
		LiquidationReader
	}
)
