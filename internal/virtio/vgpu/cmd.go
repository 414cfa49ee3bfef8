// Package vgpu implements the virtio-gpu driver. It drives the 2D
// scanout pipeline (display info, resource creation, backing
// attachment, scanout assignment, transfer/flush) through to steady
// state, and brings up an experimental 3D context on top of the same
// transport.
//
// Command and response structs are encoded with encoding/binary rather
// than populated by direct field writes, so the same code also builds
// the variable-length backing and 3D submit payloads the fuller
// pipeline needs. Display size is a configurable override
// (config.OverrideDisplayWidth/Height) rather than hard-coded.
package vgpu

import "encoding/binary"

// Command and response types (virtio-gpu device spec, "2D/3D command
// types").
const (
	cmdGetDisplayInfo       = 0x0100
	cmdResourceCreate2D     = 0x0101
	cmdSetScanout           = 0x0103
	cmdResourceFlush        = 0x0104
	cmdTransferToHost2D     = 0x0105
	cmdResourceAttachBack   = 0x0106
	cmdGetCapsetInfo        = 0x0108
	cmdGetEdid              = 0x010A
	cmdCtxCreate            = 0x0200
	cmdCtxAttachResource    = 0x0202
	cmdResourceCreate3D     = 0x0204
	cmdTransferToHost3D     = 0x0205
	cmdSubmit3D             = 0x0207

	respOkNoData      = 0x1100
	respOkDisplayInfo = 0x1101
	respOkCapsetInfo  = 0x1102
	respOkEdid        = 0x1104
)

// formatR8G8B8A8Unorm is the pixel format this driver always requests
// (virtio-gpu device spec format enum value 67), matching
// framebuffer.RGBA's true R,G,B,A byte order directly: no channel swap
// is needed between the backbuffer and the wire format.
const formatR8G8B8A8Unorm = 67

const ctrlHdrSize = 24 // le32 type, le32 flags, le64 fence_id, le32 ctx_id, le32 padding

func putCtrlHdr(buf []byte, cmdType uint32, ctxID uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], cmdType)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], ctxID)
	binary.LittleEndian.PutUint32(buf[20:24], 0)
}

func respType(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf[0:4]) }

// encodeGetDisplayInfo builds a bare ctrl_hdr request: GET_DISPLAY_INFO
// carries no body.
func encodeGetDisplayInfo() []byte {
	buf := make([]byte, ctrlHdrSize)
	putCtrlHdr(buf, cmdGetDisplayInfo, 0)
	return buf
}

// decodeDisplayInfoDims reads pmodes[0]'s rectangle width/height out of
// a RESP_OK_DISPLAY_INFO reply (ctrl_hdr + 16 display_one entries of
// {rect{x,y,w,h}, enabled, flags}, 24 bytes each). This driver only
// looks at scanout 0.
func decodeDisplayInfoDims(buf []byte) (w, h uint32, ok bool) {
	if respType(buf) != respOkDisplayInfo || len(buf) < ctrlHdrSize+24 {
		return 0, 0, false
	}
	d := buf[ctrlHdrSize:]
	w = binary.LittleEndian.Uint32(d[8:12])
	h = binary.LittleEndian.Uint32(d[12:16])
	return w, h, true
}

// encodeResourceCreate2D builds RESOURCE_CREATE_2D: ctrl_hdr + {le32
// resource_id, le32 format, le32 width, le32 height}.
func encodeResourceCreate2D(resourceID, width, height uint32) []byte {
	buf := make([]byte, ctrlHdrSize+16)
	putCtrlHdr(buf, cmdResourceCreate2D, 0)
	b := buf[ctrlHdrSize:]
	binary.LittleEndian.PutUint32(b[0:4], resourceID)
	binary.LittleEndian.PutUint32(b[4:8], formatR8G8B8A8Unorm)
	binary.LittleEndian.PutUint32(b[8:12], width)
	binary.LittleEndian.PutUint32(b[12:16], height)
	return buf
}

// encodeAttachBacking builds RESOURCE_ATTACH_BACKING for a single
// contiguous entry: ctrl_hdr + {le32 resource_id, le32 nr_entries} +
// {le64 addr, le32 length, le32 padding}. ctxID is 0 for the 2D
// scanout resource; the 3D resource is attached under its owning
// context.
func encodeAttachBacking(resourceID uint32, ctxID uint32, addr uint64, length uint32) []byte {
	buf := make([]byte, ctrlHdrSize+8+16)
	putCtrlHdr(buf, cmdResourceAttachBack, ctxID)
	b := buf[ctrlHdrSize:]
	binary.LittleEndian.PutUint32(b[0:4], resourceID)
	binary.LittleEndian.PutUint32(b[4:8], 1)
	binary.LittleEndian.PutUint64(b[8:16], addr)
	binary.LittleEndian.PutUint32(b[16:20], length)
	return buf
}

// encodeCtxAttachResource builds CTX_ATTACH_RESOURCE: ctrl_hdr (with
// ctx_id set) + {le32 resource_id, le32 padding}.
func encodeCtxAttachResource(ctxID, resourceID uint32) []byte {
	buf := make([]byte, ctrlHdrSize+8)
	putCtrlHdr(buf, cmdCtxAttachResource, ctxID)
	binary.LittleEndian.PutUint32(buf[ctrlHdrSize:ctrlHdrSize+4], resourceID)
	return buf
}

// encodeSetScanout builds SET_SCANOUT: ctrl_hdr + {rect{x,y,w,h}, le32
// scanout_id, le32 resource_id}.
func encodeSetScanout(scanoutID, resourceID, width, height uint32) []byte {
	buf := make([]byte, ctrlHdrSize+24)
	putCtrlHdr(buf, cmdSetScanout, 0)
	b := buf[ctrlHdrSize:]
	binary.LittleEndian.PutUint32(b[8:12], width)
	binary.LittleEndian.PutUint32(b[12:16], height)
	binary.LittleEndian.PutUint32(b[16:20], scanoutID)
	binary.LittleEndian.PutUint32(b[20:24], resourceID)
	return buf
}

// encodeTransferToHost2D builds TRANSFER_TO_HOST_2D: ctrl_hdr +
// {rect{x,y,w,h}, le64 offset, le32 resource_id, le32 padding}.
func encodeTransferToHost2D(resourceID, width, height uint32) []byte {
	buf := make([]byte, ctrlHdrSize+24)
	putCtrlHdr(buf, cmdTransferToHost2D, 0)
	b := buf[ctrlHdrSize:]
	binary.LittleEndian.PutUint32(b[8:12], width)
	binary.LittleEndian.PutUint32(b[12:16], height)
	binary.LittleEndian.PutUint32(b[16:20], resourceID)
	return buf
}

// encodeResourceFlush builds RESOURCE_FLUSH: ctrl_hdr + {rect{x,y,w,h},
// le32 resource_id, le32 padding}.
func encodeResourceFlush(resourceID, width, height uint32) []byte {
	buf := make([]byte, ctrlHdrSize+24)
	putCtrlHdr(buf, cmdResourceFlush, 0)
	b := buf[ctrlHdrSize:]
	binary.LittleEndian.PutUint32(b[8:12], width)
	binary.LittleEndian.PutUint32(b[12:16], height)
	binary.LittleEndian.PutUint32(b[16:20], resourceID)
	return buf
}

// encodeGetCapsetInfo builds GET_CAPSET_INFO: ctrl_hdr + {le32
// capset_index, le32 padding}.
func encodeGetCapsetInfo(index uint32) []byte {
	buf := make([]byte, ctrlHdrSize+8)
	putCtrlHdr(buf, cmdGetCapsetInfo, 0)
	binary.LittleEndian.PutUint32(buf[ctrlHdrSize:ctrlHdrSize+4], index)
	return buf
}

// encodeGetEdid builds GET_EDID: ctrl_hdr + {le32 scanout, le32
// padding}.
func encodeGetEdid(scanout uint32) []byte {
	buf := make([]byte, ctrlHdrSize+8)
	putCtrlHdr(buf, cmdGetEdid, 0)
	binary.LittleEndian.PutUint32(buf[ctrlHdrSize:ctrlHdrSize+4], scanout)
	return buf
}

// encodeCtxCreate builds CTX_CREATE: ctrl_hdr (with ctx_id set) + {le32
// nlen, le32 context_init, name[64]}.
func encodeCtxCreate(ctxID uint32, name string) []byte {
	buf := make([]byte, ctrlHdrSize+8+64)
	putCtrlHdr(buf, cmdCtxCreate, ctxID)
	b := buf[ctrlHdrSize:]
	n := copy(b[8:], name)
	binary.LittleEndian.PutUint32(b[0:4], uint32(n))
	return buf
}

// encodeResourceCreate3D builds RESOURCE_CREATE_3D for a simple 2D-style
// 3D target texture (target=PIPE_TEXTURE_2D=2, format
// formatR8G8B8A8Unorm): ctrl_hdr + {le32
// resource_id, le32 target, le32 format, le32 bind, le32 width, le32
// height, le32 depth, le32 array_size, le32 last_level, le32 nr_samples,
// le32 flags, le32 padding}.
func encodeResourceCreate3D(ctxID, resourceID, width, height uint32) []byte {
	buf := make([]byte, ctrlHdrSize+48)
	putCtrlHdr(buf, cmdResourceCreate3D, ctxID)
	b := buf[ctrlHdrSize:]
	binary.LittleEndian.PutUint32(b[0:4], resourceID)
	binary.LittleEndian.PutUint32(b[4:8], 2) // PIPE_TEXTURE_2D
	binary.LittleEndian.PutUint32(b[8:12], formatR8G8B8A8Unorm)
	binary.LittleEndian.PutUint32(b[12:16], 1<<1) // VIRGL_BIND_RENDER_TARGET
	binary.LittleEndian.PutUint32(b[16:20], width)
	binary.LittleEndian.PutUint32(b[20:24], height)
	binary.LittleEndian.PutUint32(b[24:28], 1)
	binary.LittleEndian.PutUint32(b[28:32], 1)
	binary.LittleEndian.PutUint32(b[32:36], 1)
	binary.LittleEndian.PutUint32(b[36:40], 1)
	return buf
}

// virgl 3D renderer command-stream opcodes (VIRGL_CCMD_*) and object
// types (VIRGL_OBJECT_*), the subset this driver's one-shot init buffer
// needs.
const (
	virglCmdCreateObject        = 1
	virglCmdSetFramebufferState = 5
	virglCmdClear               = 7

	virglObjectSurface = 8

	pipeClearColorAll = 0x3FC // PIPE_CLEAR_COLOR0..COLOR7 (bits 2-9)
)

func virglCmdHeader(lengthWords, objType, cmd uint32) uint32 {
	return lengthWords<<16 | objType<<8 | cmd
}

// appendVirglCreateSurface appends a CREATE_OBJECT(SURFACE) command
// binding handle as both the surface object and the resource it views.
func appendVirglCreateSurface(words []uint32, handle, format uint32) []uint32 {
	const length = 5
	words = append(words, virglCmdHeader(length, virglObjectSurface, virglCmdCreateObject))
	return append(words, handle, handle, format, 0, 0)
}

// appendVirglSetFramebufferState appends a SET_FRAMEBUFFER_STATE command
// binding the given surface handles as color buffers, no depth/stencil.
func appendVirglSetFramebufferState(words []uint32, surfaceHandles ...uint32) []uint32 {
	length := uint32(len(surfaceHandles)) + 2
	words = append(words, virglCmdHeader(length, 0, virglCmdSetFramebufferState))
	words = append(words, uint32(len(surfaceHandles)), 0)
	return append(words, surfaceHandles...)
}

// appendVirglClear appends a CLEAR command over buffers (a PIPE_CLEAR_*
// mask) to the given RGBA color, zero depth/stencil.
func appendVirglClear(words []uint32, buffers uint32, rgba [4]uint8) []uint32 {
	const length = 8
	words = append(words, virglCmdHeader(length, 0, virglCmdClear))
	words = append(words, buffers, uint32(rgba[0]), uint32(rgba[1]), uint32(rgba[2]), uint32(rgba[3]), 0, 0, 0)
	return words
}

// buildVirgl3DClearCommands assembles the one-shot virgl command stream
// this driver submits once the 3D resource is attached: create a
// surface over resourceID, bind it as the sole framebuffer color
// target, and clear it to opaque red. The stream is padded with zero
// words to config.Virgl3DSubmitWords, matching the fixed-size command
// buffer a real virgl submission carries; usedWords reports how many of
// those words are the real command (the rest is padding the host
// ignores beyond sizeBytes).
func buildVirgl3DClearCommands(resourceID uint32, totalWords int) (buf []byte, usedWords int) {
	var words []uint32
	words = appendVirglCreateSurface(words, resourceID, formatR8G8B8A8Unorm)
	words = appendVirglSetFramebufferState(words, resourceID)
	words = appendVirglClear(words, pipeClearColorAll, [4]uint8{255, 0, 0, 255})
	usedWords = len(words)

	for len(words) < totalWords {
		words = append(words, 0)
	}
	buf = make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	return buf, usedWords
}

// encodeSubmit3D builds SUBMIT_3D: ctrl_hdr (with ctx_id set) + {le32
// size} + cmdBuf, where size is the number of real command bytes at the
// front of cmdBuf (cmdBuf itself may be longer, zero-padded).
func encodeSubmit3D(ctxID uint32, cmdBuf []byte, sizeBytes uint32) []byte {
	buf := make([]byte, ctrlHdrSize+4+len(cmdBuf))
	putCtrlHdr(buf, cmdSubmit3D, ctxID)
	binary.LittleEndian.PutUint32(buf[ctrlHdrSize:ctrlHdrSize+4], sizeBytes)
	copy(buf[ctrlHdrSize+4:], cmdBuf)
	return buf
}
