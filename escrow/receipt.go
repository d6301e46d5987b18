package escrow

import (
	"bytes"
	"fmt"
	"net/http"

	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// GET /api/escrow/:jobid/receipt
// Renders a PDF receipt for the escrow record; the QR code points at the
// block-explorer page for the funding transaction.
func (h *Handlers) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	jobID := ps.ByName("jobid")

	rec, err := h.store.GetEscrowByJob(ctx, jobID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	if userID != rec.ClientID && userID != rec.FreelancerID {
		utils.RespondWithError(w, http.StatusForbidden, "Not a party to this escrow")
		return
	}

	txURL := h.wf.explorerURL + rec.TxHash
	qrPNG, err := qrcode.Encode(txURL, qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Escrow Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Job ID: %s", rec.JobID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Contract: %s", rec.ContractID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Network: %s", rec.Network))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Amount: %.2f %s", rec.Amount, rec.Token))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Platform fee: %.2f %s", rec.PlatformFee, rec.Token))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", rec.Status))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Funded: %s", rec.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(12)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("tx-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("tx-qr", 20, pdf.GetY(), 60, 60, false, opts, 0, "")

	pdf.SetY(pdf.GetY() + 65)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, 10, "Scan to view the funding transaction on the block explorer.")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=escrow-%s.pdf", rec.JobID))
	if err := pdf.Output(w); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render receipt")
	}
}
