package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/requisition-analyzer/internal/model"
)

// PlanOrders drafts one pending purchase order per depot in the report's
// strategy. Expected delivery follows the slowest item bought from the depot.
func PlanOrders(report *model.AnalysisReport, orderDate time.Time, newID func() string) []model.PurchaseOrder {
	if report == nil {
		return nil
	}
	if newID == nil {
		newID = uuid.NewString
	}

	byItem := make(map[string]model.AnalysisResult, len(report.Results))
	for _, r := range report.Results {
		byItem[r.ItemID] = r
	}

	orders := make([]model.PurchaseOrder, 0, len(report.Strategy))
	for _, alloc := range report.Strategy {
		order := model.PurchaseOrder{
			ID:               newID(),
			RequisitionID:    report.RequisitionID,
			ReportID:         report.ID,
			Depot:            alloc.Depot,
			Status:           model.OrderPending,
			PaymentStatus:    model.PaymentUnpaid,
			OrderDate:        orderDate,
			ExpectedDelivery: orderDate.AddDate(0, 0, alloc.MaxDeliveryDays),
		}
		for _, id := range alloc.ItemIDs {
			r := byItem[id]
			order.Items = append(order.Items, model.OrderLine{
				MedicationName: r.MedicationName,
				Quantity:       r.Quantity,
				UnitPrice:      r.CheapestUnitPrice,
				TotalPrice:     r.CheapestPrice,
			})
			order.TotalAmount = order.TotalAmount.Add(r.CheapestPrice)
		}
		orders = append(orders, order)
	}
	return orders
}
