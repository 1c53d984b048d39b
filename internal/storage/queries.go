package storage

const (
	purchaseColumns = `id, registered_date, concept, category, total_installments, installment_amount, active`

	qFindDuplicate = `
		SELECT id FROM purchases
		WHERE concept = ? AND installment_amount = ? AND registered_date = ?
		LIMIT 1`

	qInsertPurchase = `
		INSERT INTO purchases (registered_date, concept, category, total_installments, installment_amount, active)
		VALUES (?, ?, ?, ?, ?, 1)`

	qUpdatePurchase = `
		UPDATE purchases
		SET concept = ?, category = ?, installment_amount = ?, total_installments = ?
		WHERE id = ?`

	qDeletePurchase = `DELETE FROM purchases WHERE id = ?`

	qInsertRow = `
		INSERT INTO installment_rows (purchase_id, installment_number, due_month, amount)
		VALUES (?, ?, ?, ?)`

	qDeleteRowsForPurchase = `DELETE FROM installment_rows WHERE purchase_id = ?`

	qListPurchases = `SELECT ` + purchaseColumns + ` FROM purchases ORDER BY id DESC`

	qGetPurchase = `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ?`

	qListPlan = `
		SELECT id, purchase_id, installment_number, due_month, amount
		FROM installment_rows
		WHERE purchase_id = ?
		ORDER BY installment_number ASC`

	qDueRows = `
		SELECT c.id, c.concept, c.category, c.total_installments, pp.installment_number, pp.amount
		FROM installment_rows pp
		JOIN purchases c ON pp.purchase_id = c.id
		WHERE pp.due_month = ?
		ORDER BY pp.id ASC`

	qRowsFrom = `
		SELECT id, purchase_id, installment_number, due_month, amount
		FROM installment_rows
		WHERE due_month >= ?
		ORDER BY due_month ASC, id ASC`

	qDueMonths = `
		SELECT DISTINCT due_month FROM installment_rows
		WHERE purchase_id = ?
		ORDER BY due_month ASC`

	qCountRows = `SELECT COUNT(*) FROM installment_rows WHERE purchase_id = ?`
)
