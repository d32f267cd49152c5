package wire

import "github.com/meridianav/avcore"

// LabelRequest is the shared shape of the tx-label add/remove commands
// (§3 Label type), grounded on the original dr_txchannel_add_txlabel/
// dr_txchannel_remove_txlabel name-addressed calls
// (original_source/include/audinate/dante/routing.h). Like StoreConfig,
// the caller's own cache is not mutated on submission: the device
// announces the change via TxChannelLabelChange and the cache catches
// up once update_component re-fetches ComponentTxLabels (§4.4).
type LabelRequest struct {
	Header      VendorHeader
	TxChannelID uint16
	Name        avcore.Name
}

func initLabelRequest(w *Writer, vendorType VendorType, req LabelRequest) bool {
	req.Header.Type = vendorType
	ok := InitVendorHeader(w, req.Header)
	ok = ok && w.PutUint16(req.TxChannelID)
	ok = ok && w.PutName(req.Name)
	return ok
}

func getLabelRequest(r *Reader, vendorType VendorType) (LabelRequest, bool) {
	h, ok := GetVendorHeader(r)
	if !ok || h.Type != vendorType {
		return LabelRequest{}, false
	}
	id, ok := r.GetUint16()
	if !ok {
		return LabelRequest{}, false
	}
	name, ok := r.GetName()
	if !ok {
		return LabelRequest{}, false
	}
	return LabelRequest{Header: h, TxChannelID: id, Name: name}, true
}

func InitTxLabelAddRequest(w *Writer, req LabelRequest) bool {
	return initLabelRequest(w, VendorTypeTxLabelAdd, req)
}
func GetTxLabelAddRequest(r *Reader) (LabelRequest, bool) {
	return getLabelRequest(r, VendorTypeTxLabelAdd)
}

func InitTxLabelRemoveRequest(w *Writer, req LabelRequest) bool {
	return initLabelRequest(w, VendorTypeTxLabelRemove, req)
}
func GetTxLabelRemoveRequest(r *Reader) (LabelRequest, bool) {
	return getLabelRequest(r, VendorTypeTxLabelRemove)
}
