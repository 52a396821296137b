package cl

import "fmt"

// Status is the native status code every operation returns. Native
// failures travel on this channel; Go errors are reserved for faults in
// the binding layer itself.
type Status int32

const (
	Success                    Status = 0
	DeviceNotFound             Status = -1
	DeviceNotAvailable         Status = -2
	MemObjectAllocationFailure Status = -4
	OutOfResources             Status = -5
	OutOfHostMemory            Status = -6
	BuildProgramFailure        Status = -11
	InvalidValue               Status = -30
	InvalidDevice              Status = -33
	InvalidContext             Status = -34
	InvalidCommandQueue        Status = -36
	InvalidHostPtr             Status = -37
	InvalidMemObject           Status = -38
	InvalidBuildOptions        Status = -43
	InvalidProgram             Status = -44
	InvalidProgramExecutable   Status = -45
	InvalidKernelName          Status = -46
	InvalidKernel              Status = -48
	InvalidArgIndex            Status = -49
	InvalidArgValue            Status = -50
	InvalidArgSize             Status = -51
	InvalidEvent               Status = -58
	InvalidOperation           Status = -59
	InvalidBufferSize          Status = -61
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case DeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case DeviceNotAvailable:
		return "DEVICE_NOT_AVAILABLE"
	case MemObjectAllocationFailure:
		return "MEM_OBJECT_ALLOCATION_FAILURE"
	case OutOfResources:
		return "OUT_OF_RESOURCES"
	case OutOfHostMemory:
		return "OUT_OF_HOST_MEMORY"
	case BuildProgramFailure:
		return "BUILD_PROGRAM_FAILURE"
	case InvalidValue:
		return "INVALID_VALUE"
	case InvalidDevice:
		return "INVALID_DEVICE"
	case InvalidContext:
		return "INVALID_CONTEXT"
	case InvalidCommandQueue:
		return "INVALID_COMMAND_QUEUE"
	case InvalidHostPtr:
		return "INVALID_HOST_PTR"
	case InvalidMemObject:
		return "INVALID_MEM_OBJECT"
	case InvalidBuildOptions:
		return "INVALID_BUILD_OPTIONS"
	case InvalidProgram:
		return "INVALID_PROGRAM"
	case InvalidProgramExecutable:
		return "INVALID_PROGRAM_EXECUTABLE"
	case InvalidKernelName:
		return "INVALID_KERNEL_NAME"
	case InvalidKernel:
		return "INVALID_KERNEL"
	case InvalidArgIndex:
		return "INVALID_ARG_INDEX"
	case InvalidArgValue:
		return "INVALID_ARG_VALUE"
	case InvalidArgSize:
		return "INVALID_ARG_SIZE"
	case InvalidEvent:
		return "INVALID_EVENT"
	case InvalidOperation:
		return "INVALID_OPERATION"
	case InvalidBufferSize:
		return "INVALID_BUFFER_SIZE"
	default:
		return fmt.Sprintf("STATUS(%d)", int32(s))
	}
}

// DeviceType selects device categories during enumeration.
type DeviceType uint64

const (
	DeviceTypeDefault DeviceType = 1 << 0
	DeviceTypeCPU     DeviceType = 1 << 1
	DeviceTypeGPU     DeviceType = 1 << 2
	DeviceTypeAll     DeviceType = 0xFFFFFFFF
)

// MemFlags configure memory object creation.
type MemFlags uint64

const (
	MemReadWrite    MemFlags = 1 << 0
	MemWriteOnly    MemFlags = 1 << 1
	MemReadOnly     MemFlags = 1 << 2
	MemUseHostPtr   MemFlags = 1 << 3
	MemAllocHostPtr MemFlags = 1 << 4
	MemCopyHostPtr  MemFlags = 1 << 5
)

// Info parameter names for the info-query operations.
const (
	PlatformProfile    uint32 = 0x0900
	PlatformVersion    uint32 = 0x0901
	PlatformName       uint32 = 0x0902
	PlatformVendor     uint32 = 0x0903
	PlatformExtensions uint32 = 0x0904

	DeviceName    uint32 = 0x102B
	DeviceVendor  uint32 = 0x102C
	DeviceVersion uint32 = 0x102F
	DeviceTypeKey uint32 = 0x1000
)
