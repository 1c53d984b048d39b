package main

import (
	"context"
	"os"

	"cuotas/internal/cli"
	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/services"

	"github.com/shopspring/decimal"
)

// seedItem is one line of the February 2026 statement: the installment
// amount and how many installments remain after this one.
type seedItem struct {
	concept   string
	category  core.Category
	remaining int
	amount    string
}

var february2026 = []seedItem{
	{"DREAN SA", core.CategoryOther, 13, "37373.26"},
	{"FRAVEGA.COM-BNA", core.CategoryShared, 3, "33333.16"},
	{"GADNIC", core.CategoryShared, 3, "23118.16"},
	{"TIENDABNA.COM.AR", core.CategoryShared, 21, "12187.45"},
	{"VISAUR", core.CategoryShared, 9, "5000.00"},
	{"TOTAL HOME S.A.", core.CategoryShared, 21, "3031.20"},
	{"BIDCOM", core.CategoryShared, 9, "2778.58"},
	{"TIO MUSA SA", core.CategoryShared, 21, "2345.50"},
	{"DEPOT CENTER", core.CategoryShared, 9, "2374.95"},
	{"STYLE STORE", core.CategoryShared, 1, "2166.66"},
	{"FARMACIA SANTA ANA", core.CategoryMine, 2, "11848.58"},
	{"YENNY CORRIENTES", core.CategoryMine, 5, "2416.66"},
}

// candidates turns the seed into purchases starting at installment 1, with
// the remaining installments still ahead.
func candidates(items []seedItem) []core.Candidate {
	out := make([]core.Candidate, 0, len(items))
	for _, it := range items {
		out = append(out, core.Candidate{
			Concept:            it.concept,
			Category:           it.category,
			TotalInstallments:  it.remaining + 1,
			CurrentInstallment: 1,
			Amount:             decimal.RequireFromString(it.amount),
		})
	}
	return out
}

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger("cuotas-seed", cfg)
	cli.MustValidate(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.ChangePublisher
	if amqpClient := cli.InitAMQP(logger, cfg); amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	purchases := services.NewPurchaseService(repo, publisher, logger)
	res, err := purchases.AddBatch(context.Background(), candidates(february2026), core.NewDate(2026, 2, 1))
	if err != nil {
		logger.Error("Seeding failed", log.FieldError, err.Error(), log.FieldSaved, res.Saved)
		os.Exit(1)
	}
	logger.Info("Seed loaded",
		log.FieldSaved, res.Saved,
		log.FieldDuplicates, res.Duplicates,
		log.FieldRejected, len(res.Rejected))
}
