package script

import (
	"errors"
	"fmt"
	"io"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

type nativeFunc = func(goja.FunctionCall) goja.Value

// registerFileModule installs the global `file` object.
func (r *Runtime) registerFileModule() error {
	funcs := map[string]nativeFunc{
		"open":      r.fileOpen,
		"close":     r.fileClose,
		"read":      r.fileRead,
		"readline":  r.fileReadLine,
		"write":     r.fileWrite,
		"writeline": r.fileWriteLine,
		"format":    r.fileFormat,
		"remove":    r.fileRemove,
		"seek":      r.fileSeek,
		"flush":     r.fileFlush,
		"rename":    r.fileRename,
		"fsinfo":    r.fileInfo,
		"fscfg":     r.fileConfig,
		"exists":    r.fileExists,
		"list":      r.fileList,
	}

	obj := r.vm.NewObject()
	for name, fn := range funcs {
		if err := obj.Set(name, fn); err != nil {
			return fmt.Errorf("register file.%s: %w", name, err)
		}
	}
	return r.vm.Set("file", obj)
}

func (r *Runtime) fileOpen(call goja.FunctionCall) goja.Value {
	name := r.stringArg(call, "open", 0)
	mode := "r"
	if arg := call.Argument(1); !isMissing(arg) {
		mode = arg.String()
	}

	if err := r.files.Open(name, mode); err != nil {
		return r.fail(err, goja.Null())
	}
	return r.vm.ToValue(true)
}

func (r *Runtime) fileClose(call goja.FunctionCall) goja.Value {
	if err := r.files.Close(); err != nil {
		r.logger.Debug("close failed", zap.Error(err))
	}
	return goja.Undefined()
}

func (r *Runtime) fileRead(call goja.FunctionCall) goja.Value {
	req := file.ByLength(0)

	switch arg := call.Argument(0).Export().(type) {
	case int64:
		req = file.ByLength(clampInt(arg))
	case float64:
		req = file.ByLength(clampInt(int64(arg)))
	case string:
		term := stringBytes(arg)
		if len(term) != 1 {
			return r.fail(&file.ArgError{Op: "read", Position: 1, Err: file.ErrInvalidArgument}, goja.Null())
		}
		req = file.UntilByte(int(term[0]))
	}

	return r.readResult(r.files.Read(req))
}

func (r *Runtime) fileReadLine(call goja.FunctionCall) goja.Value {
	return r.readResult(r.files.ReadLine())
}

func (r *Runtime) readResult(data []byte, err error) goja.Value {
	if errors.Is(err, io.EOF) {
		return goja.Null()
	}
	if err != nil {
		return r.fail(err, goja.Null())
	}
	return r.vm.ToValue(byteString(data))
}

func (r *Runtime) fileWrite(call goja.FunctionCall) goja.Value {
	data := r.bytesArg(call, "write", 0)
	if err := r.files.Write(data); err != nil {
		return r.fail(err, goja.Null())
	}
	return r.vm.ToValue(true)
}

func (r *Runtime) fileWriteLine(call goja.FunctionCall) goja.Value {
	data := r.bytesArg(call, "writeline", 0)
	if err := r.files.WriteLine(data); err != nil {
		return r.fail(err, goja.Null())
	}
	return r.vm.ToValue(true)
}

func (r *Runtime) fileFormat(call goja.FunctionCall) goja.Value {
	if err := r.files.Format(); err != nil {
		return r.fail(err, goja.Undefined())
	}
	return goja.Undefined()
}

func (r *Runtime) fileRemove(call goja.FunctionCall) goja.Value {
	name := r.stringArg(call, "remove", 0)
	if err := r.files.Remove(name); err != nil {
		r.fail(err, goja.Undefined())
	}
	return goja.Undefined()
}

func (r *Runtime) fileSeek(call goja.FunctionCall) goja.Value {
	whence := volume.SeekCur
	if arg := call.Argument(0); !isMissing(arg) {
		w, err := volume.ParseWhence(arg.String())
		if err != nil {
			return r.fail(&file.ArgError{Op: "seek", Position: 1, Err: err}, goja.Null())
		}
		whence = w
	}

	var offset int64
	if arg := call.Argument(1); !isMissing(arg) {
		offset = arg.ToInteger()
	}

	pos, err := r.files.Seek(whence, offset)
	if err != nil {
		return r.fail(err, goja.Null())
	}
	return r.vm.ToValue(pos)
}

func (r *Runtime) fileFlush(call goja.FunctionCall) goja.Value {
	if err := r.files.Flush(); err != nil {
		return r.fail(err, goja.Null())
	}
	return r.vm.ToValue(true)
}

func (r *Runtime) fileRename(call goja.FunctionCall) goja.Value {
	oldName := r.stringArg(call, "rename", 0)
	newName := r.stringArg(call, "rename", 1)
	if err := r.files.Rename(oldName, newName); err != nil {
		return r.fail(err, r.vm.ToValue(false))
	}
	return r.vm.ToValue(true)
}

func (r *Runtime) fileInfo(call goja.FunctionCall) goja.Value {
	info, err := r.files.Info()
	if err != nil {
		return r.fail(err, goja.Undefined())
	}
	return r.vm.NewArray(info.Free, info.Used, info.Total)
}

func (r *Runtime) fileConfig(call goja.FunctionCall) goja.Value {
	cfg := r.files.PhysicalConfig()
	return r.vm.NewArray(int64(cfg.Address), int64(cfg.Size))
}

func (r *Runtime) fileExists(call goja.FunctionCall) goja.Value {
	name := r.stringArg(call, "exists", 0)
	found, err := r.files.Exists(name)
	if err != nil {
		return r.fail(err, r.vm.ToValue(false))
	}
	return r.vm.ToValue(found)
}

func (r *Runtime) fileList(call goja.FunctionCall) goja.Value {
	var pattern string
	if arg := call.Argument(0); !isMissing(arg) {
		pattern = r.stringArg(call, "list", 0)
	}
	files, err := r.files.Glob(pattern)
	if err != nil {
		return r.fail(err, goja.Null())
	}

	obj := r.vm.NewObject()
	for name, size := range files {
		if err := obj.Set(name, size); err != nil {
			r.logger.Warn("list entry dropped", zap.String("name", name), zap.Error(err))
		}
	}
	return obj
}

// fail surfaces err according to its kind. Argument and precondition errors
// throw, fatal errors interrupt the VM and I/O failures return sentinel.
func (r *Runtime) fail(err error, sentinel goja.Value) goja.Value {
	switch file.Classify(err) {
	case file.KindArgument:
		panic(r.typeError(err))
	case file.KindPrecondition:
		panic(r.vm.NewGoError(file.ErrNoOpenFile))
	case file.KindFatal:
		var fatal *file.FatalError
		errors.As(err, &fatal)
		r.logger.Error("fatal file system error, stopping script",
			zap.String("op", fatal.Op),
			zap.String("advice", fatal.Advice),
			zap.Error(err))
		r.vm.Interrupt(fatal)
		return goja.Undefined()
	default:
		r.logger.Debug("file operation failed", zap.Error(err))
		return sentinel
	}
}

func (r *Runtime) typeError(err error) *goja.Object {
	return r.vm.NewTypeError(err.Error())
}

// stringArg returns argument i as a string or throws a TypeError.
func (r *Runtime) stringArg(call goja.FunctionCall, op string, i int) string {
	arg := call.Argument(i)
	if isMissing(arg) {
		panic(r.typeError(expected(op, i, arg)))
	}
	switch arg.Export().(type) {
	case string, int64, float64:
		return arg.String()
	default:
		panic(r.typeError(expected(op, i, arg)))
	}
}

// bytesArg accepts strings, numbers, ArrayBuffers, typed arrays and arrays
// of byte values. Strings are byte strings as produced by read.
func (r *Runtime) bytesArg(call goja.FunctionCall, op string, i int) []byte {
	arg := call.Argument(i)
	if isMissing(arg) {
		panic(r.typeError(expected(op, i, arg)))
	}

	switch v := arg.Export().(type) {
	case string:
		return stringBytes(v)
	case int64, float64:
		return []byte(arg.String())
	case goja.ArrayBuffer:
		return v.Bytes()
	case []byte:
		return v
	case []interface{}:
		out := make([]byte, len(v))
		for j, el := range v {
			n, ok := toByte(el)
			if !ok {
				panic(r.typeError(&file.ArgError{Op: op, Position: i + 1, Err: file.ErrInvalidArgument}))
			}
			out[j] = n
		}
		return out
	default:
		panic(r.typeError(expected(op, i, arg)))
	}
}

func toByte(v interface{}) (byte, bool) {
	switch n := v.(type) {
	case int64:
		if n >= 0 && n <= 0xff {
			return byte(n), true
		}
	case float64:
		if n >= 0 && n <= 0xff && n == float64(int64(n)) {
			return byte(n), true
		}
	}
	return 0, false
}

func expected(op string, i int, arg goja.Value) error {
	return &file.ArgError{Op: op, Position: i + 1, Err: fmt.Errorf("string expected, got %s", typeName(arg))}
}

func isMissing(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func typeName(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "no value"
	case goja.IsNull(v):
		return "null"
	}
	if _, ok := v.Export().(bool); ok {
		return "boolean"
	}
	return "object"
}

func clampInt(n int64) int {
	const maxInt = int64(^uint(0) >> 1)
	if n > maxInt {
		return int(maxInt)
	}
	if n < -maxInt {
		return -int(maxInt)
	}
	return int(n)
}
