// Package template holds the fixed, process-wide read-only field
// descriptions the Smart Mapper prompts against (§4.7). The Exporter
// Factory does not read these templates. Adding a document type is
// additive: a new Template and a new registry entry, no change to existing
// ones.
package template

import "github.com/docuscan/taxpipeline/internal/models"

// Registry looks up a Template by document type.
type Registry struct {
	templates map[models.DocumentType]*models.Template
}

// NewRegistry builds the fixed registry of document-type templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[models.DocumentType]*models.Template)}
	for _, t := range []*models.Template{
		fakturPajakTemplate(),
		pph21Template(),
		pph23Template(),
		invoiceTemplate(),
		rekeningKoranTemplate(),
	} {
		r.templates[t.DocumentType] = t
	}
	return r
}

// Get returns the template for docType, or false if the type is unknown.
func (r *Registry) Get(docType models.DocumentType) (*models.Template, bool) {
	t, ok := r.templates[docType]
	return t, ok
}

func fakturPajakTemplate() *models.Template {
	return &models.Template{
		DocumentType: models.DocTypeFakturPajak,
		Sections: []models.Section{
			{Name: "seller", Fields: []models.FieldHint{
				{Name: "name", Label: "Seller name", Required: true},
				{Name: "address", Label: "Seller address", Required: true},
				{Name: "npwp", Label: "Seller NPWP", Required: true, Format: "##.###.###.#-###.###"},
			}},
			{Name: "buyer", Fields: []models.FieldHint{
				{Name: "name", Label: "Buyer name", Required: true},
				{Name: "address", Label: "Buyer address", Required: true},
				{Name: "npwp", Label: "Buyer NPWP", Format: "##.###.###.#-###.###"},
				{Name: "email", Label: "Buyer email"},
			}},
			{Name: "invoice", Fields: []models.FieldHint{
				{Name: "number", Label: "Faktur Pajak number", Required: true},
				{Name: "issue_date", Label: "Issue date", Required: true, Format: "DD/MM/YYYY"},
				{Name: "reference", Label: "Reference number"},
			}},
			{Name: "financials", Fields: []models.FieldHint{
				{Name: "dpp", Label: "Dasar Pengenaan Pajak", Required: true, Format: "rupiah"},
				{Name: "ppn", Label: "PPN", Required: true, Format: "rupiah"},
				{Name: "total", Label: "Total", Required: true, Format: "rupiah"},
			}},
			{Name: "items", Fields: []models.FieldHint{
				{Name: "description", Label: "Item description"},
				{Name: "quantity", Label: "Quantity", Format: "number"},
				{Name: "unit_price", Label: "Unit price", Format: "rupiah"},
			}},
		},
	}
}

func pph21Template() *models.Template {
	return &models.Template{
		DocumentType: models.DocTypePPh21,
		Sections: []models.Section{
			{Name: "dokumen", Fields: []models.FieldHint{
				{Name: "nomor", Label: "Document number", Required: true},
				{Name: "masa_pajak", Label: "Tax period", Required: true},
				{Name: "tanggal", Label: "Document date", Required: true, Format: "DD/MM/YYYY"},
			}},
			{Name: "dokumen_dasar", Fields: []models.FieldHint{
				{Name: "jenis", Label: "Underlying document type"},
				{Name: "tanggal", Label: "Underlying document date", Format: "DD/MM/YYYY"},
				{Name: "nomor", Label: "Underlying document number"},
			}},
			{Name: "identitas_pemotong", Fields: []models.FieldHint{
				{Name: "nama", Label: "Withholder name", Required: true},
				{Name: "npwp", Label: "Withholder NPWP", Required: true},
			}},
			{Name: "penerima", Fields: []models.FieldHint{
				{Name: "nama", Label: "Recipient name", Required: true},
				{Name: "npwp", Label: "Recipient NPWP"},
			}},
			{Name: "financials", Fields: []models.FieldHint{
				{Name: "dpp", Label: "DPP", Required: true, Format: "rupiah"},
				{Name: "tarif", Label: "Rate", Format: "percent"},
				{Name: "pph", Label: "PPh withheld", Required: true, Format: "rupiah"},
			}},
		},
	}
}

// pph23Template is the 20-ordered-field layout §4.7 calls out explicitly,
// spanning dokumen, penerima, pemotong, objek_pajak, financials, and
// dokumen_dasar.
func pph23Template() *models.Template {
	return &models.Template{
		DocumentType: models.DocTypePPh23,
		Sections: []models.Section{
			{Name: "dokumen", Fields: []models.FieldHint{
				{Name: "nomor", Label: "Document number", Required: true},
				{Name: "masa_pajak", Label: "Tax period", Required: true},
				{Name: "tanggal", Label: "Document date", Required: true, Format: "DD/MM/YYYY"},
				{Name: "pembetulan_ke", Label: "Amendment sequence", Format: "number"},
			}},
			{Name: "penerima", Fields: []models.FieldHint{
				{Name: "nama", Label: "Recipient name", Required: true},
				{Name: "npwp", Label: "Recipient NPWP", Required: true},
				{Name: "alamat", Label: "Recipient address"},
			}},
			{Name: "pemotong", Fields: []models.FieldHint{
				{Name: "nama", Label: "Withholder name", Required: true},
				{Name: "npwp", Label: "Withholder NPWP", Required: true},
				{Name: "nama_penandatangan", Label: "Signatory name"},
			}},
			{Name: "objek_pajak", Fields: []models.FieldHint{
				{Name: "jenis", Label: "Object-of-tax category", Required: true},
				{Name: "kode", Label: "Object-of-tax code"},
				{Name: "deskripsi", Label: "Description"},
			}},
			{Name: "financials", Fields: []models.FieldHint{
				{Name: "dpp", Label: "DPP", Required: true, Format: "rupiah"},
				{Name: "tarif", Label: "Rate", Format: "percent"},
				{Name: "pph", Label: "PPh withheld", Required: true, Format: "rupiah"},
				{Name: "tanggal_penyetoran", Label: "Remittance date", Format: "DD/MM/YYYY"},
			}},
			{Name: "dokumen_dasar", Fields: []models.FieldHint{
				{Name: "jenis", Label: "Underlying document type"},
				{Name: "nomor", Label: "Underlying document number"},
				{Name: "tanggal", Label: "Underlying document date", Format: "DD/MM/YYYY"},
			}},
		},
	}
}

func invoiceTemplate() *models.Template {
	return &models.Template{
		DocumentType: models.DocTypeInvoice,
		Sections: []models.Section{
			{Name: "vendor", Fields: []models.FieldHint{
				{Name: "name", Label: "Vendor name", Required: true},
				{Name: "address", Label: "Vendor address"},
			}},
			{Name: "customer", Fields: []models.FieldHint{
				{Name: "name", Label: "Customer name", Required: true},
				{Name: "address", Label: "Customer address"},
			}},
			{Name: "line_items", Fields: []models.FieldHint{
				{Name: "description", Label: "Line item description"},
				{Name: "quantity", Label: "Quantity", Format: "number"},
				{Name: "unit_price", Label: "Unit price", Format: "rupiah"},
			}},
			{Name: "financials", Fields: []models.FieldHint{
				{Name: "subtotal", Label: "Subtotal", Required: true, Format: "rupiah"},
				{Name: "tax", Label: "Tax", Format: "rupiah"},
				{Name: "total", Label: "Total", Required: true, Format: "rupiah"},
			}},
		},
	}
}

// rekeningKoranTemplate shapes the Smart Mapper's half of the Hybrid Bank
// Processor (§4.3): it asks the model for bank/account identity, running
// balances and a transactions list. The processor uses the mapper's
// transactions only when the Bank Adapter produced no rows.
func rekeningKoranTemplate() *models.Template {
	return &models.Template{
		DocumentType: models.DocTypeRekeningKoran,
		Sections: []models.Section{
			{Name: "bank_info", Fields: []models.FieldHint{
				{Name: "nama_bank", Label: "Bank name", Required: true},
				{Name: "nomor_rekening", Label: "Account number", Required: true},
				{Name: "nama_pemegang", Label: "Account holder", Required: true},
				{Name: "periode", Label: "Statement period"},
			}},
			{Name: "saldo_info", Fields: []models.FieldHint{
				{Name: "awal", Label: "Opening balance", Format: "rupiah"},
				{Name: "akhir", Label: "Closing balance", Format: "rupiah"},
			}},
			{Name: "transactions", Fields: []models.FieldHint{
				{Name: "transaction_date", Label: "Transaction date", Format: "DD/MM/YYYY"},
				{Name: "description", Label: "Description"},
				{Name: "debit", Label: "Debit", Format: "rupiah"},
				{Name: "credit", Label: "Credit", Format: "rupiah"},
				{Name: "balance", Label: "Balance", Format: "rupiah"},
			}},
		},
	}
}
